package check_test

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/spincheck/spincheck/internal/bindings"
	"github.com/spincheck/spincheck/internal/check"
	"github.com/spincheck/spincheck/internal/mocks"
	"github.com/spincheck/spincheck/pkg/report"
)

const configPath = "/opt/spinnaker/config/spinnaker_config.cfg"

// fakeFileInfo satisfies fs.FileInfo with a fixed mode for permission tests.
type fakeFileInfo struct {
	name string
	mode fs.FileMode
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() any           { return nil }

type CheckTestSuite struct {
	suite.Suite
	fs   *mocks.MockFS
	meta *mocks.MockMetadata
}

func (s *CheckTestSuite) SetupTest() {
	s.fs = new(mocks.MockFS)
	s.meta = new(mocks.MockMetadata)
}

func (s *CheckTestSuite) newValidator(b bindings.Bindings) *check.Validator {
	return check.New(b, configPath, s.meta, check.WithFS(s.fs))
}

func (s *CheckTestSuite) TestCheckTrueFalse() {
	testCases := []struct {
		name         string
		bindings     bindings.Bindings
		expectedKind report.Kind
		expectedOK   bool
	}{
		{
			name:         "missing field",
			bindings:     bindings.Bindings{},
			expectedKind: report.MissingField,
		},
		{
			name:         "not a boolean literal",
			bindings:     bindings.Bindings{"AWS_ENABLED": "yes"},
			expectedKind: report.InvalidValue,
		},
		{
			name:         "empty value",
			bindings:     bindings.Bindings{"AWS_ENABLED": ""},
			expectedKind: report.InvalidValue,
		},
		{
			name:       "literal true",
			bindings:   bindings.Bindings{"AWS_ENABLED": "true"},
			expectedOK: true,
		},
		{
			name:       "literal false",
			bindings:   bindings.Bindings{"AWS_ENABLED": "false"},
			expectedOK: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			v := s.newValidator(tc.bindings)
			findings := v.CheckTrueFalse("AWS_ENABLED")

			if tc.expectedOK {
				s.Empty(findings)
				return
			}
			s.Require().Len(findings, 1)
			s.Equal(tc.expectedKind, findings[0].Kind)
			s.Equal("AWS_ENABLED", findings[0].Field)
		})
	}
}

func (s *CheckTestSuite) TestCheckHostPort() {
	testCases := []struct {
		name         string
		bindings     bindings.Bindings
		required     bool
		expectedKind report.Kind
		expectedOK   bool
	}{
		{
			name:         "missing key",
			bindings:     bindings.Bindings{},
			expectedKind: report.MissingField,
		},
		{
			name:       "empty value optional",
			bindings:   bindings.Bindings{"DOCKER_ADDRESS": ""},
			expectedOK: true,
		},
		{
			name:         "empty value required",
			bindings:     bindings.Bindings{"DOCKER_ADDRESS": ""},
			required:     true,
			expectedKind: report.MissingAddress,
		},
		{
			name:       "bare host",
			bindings:   bindings.Bindings{"DOCKER_ADDRESS": "docker.internal"},
			expectedOK: true,
		},
		{
			name:       "host with port",
			bindings:   bindings.Bindings{"DOCKER_ADDRESS": "docker.internal:2375"},
			expectedOK: true,
		},
		{
			name:       "host with port and path",
			bindings:   bindings.Bindings{"DOCKER_ADDRESS": "registry.local:5000/my-org/repo"},
			expectedOK: true,
		},
		{
			name:         "uppercase host",
			bindings:     bindings.Bindings{"DOCKER_ADDRESS": "Docker.Internal"},
			expectedKind: report.MalformedAddress,
		},
		{
			name:         "non-numeric port",
			bindings:     bindings.Bindings{"DOCKER_ADDRESS": "docker.internal:http"},
			expectedKind: report.MalformedAddress,
		},
		{
			name:         "embedded space",
			bindings:     bindings.Bindings{"DOCKER_ADDRESS": "docker internal"},
			expectedKind: report.MalformedAddress,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			v := s.newValidator(tc.bindings)
			findings := v.CheckHostPort("DOCKER_ADDRESS", tc.required)

			if tc.expectedOK {
				s.Empty(findings)
				return
			}
			s.Require().Len(findings, 1)
			s.Equal(tc.expectedKind, findings[0].Kind)
		})
	}
}

func (s *CheckTestSuite) TestCheckAWSProvider() {
	testCases := []struct {
		name     string
		bindings bindings.Bindings
		fields   []string // fields expected in findings, in order
	}{
		{
			name:     "flag missing is the only issue",
			bindings: bindings.Bindings{"AWS_ACCESS_KEY": "!!!"},
			fields:   []string{"AWS_ENABLED"},
		},
		{
			name:     "disabled skips key checks",
			bindings: bindings.Bindings{"AWS_ENABLED": "false"},
		},
		{
			name: "enabled with valid keys",
			bindings: bindings.Bindings{
				"AWS_ENABLED":    "true",
				"AWS_ACCESS_KEY": "AKIAEXAMPLE123",
				"AWS_SECRET_KEY": "abc/DEF/ghi123",
			},
		},
		{
			name: "empty access key",
			bindings: bindings.Bindings{
				"AWS_ENABLED":    "true",
				"AWS_ACCESS_KEY": "",
				"AWS_SECRET_KEY": "abc/DEF/ghi123",
			},
			fields: []string{"AWS_ACCESS_KEY"},
		},
		{
			name: "both keys malformed",
			bindings: bindings.Bindings{
				"AWS_ENABLED":    "true",
				"AWS_ACCESS_KEY": "has spaces",
				"AWS_SECRET_KEY": "has=equals",
			},
			fields: []string{"AWS_ACCESS_KEY", "AWS_SECRET_KEY"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			v := s.newValidator(tc.bindings)
			findings := v.CheckAWSProvider()

			s.Require().Len(findings, len(tc.fields))
			for i, field := range tc.fields {
				s.Equal(field, findings[i].Field)
				// Key material must never leak into the finding.
				if value := tc.bindings.GetOrEmpty(field); value != "" {
					s.NotContains(findings[i].Detail, value)
					s.NotContains(findings[i].String(), value)
				}
			}
		})
	}
}

func (s *CheckTestSuite) TestCheckDocker() {
	s.Run("enabled but no target repository", func() {
		v := s.newValidator(bindings.Bindings{
			"DOCKER_ADDRESS":           "NOT AN ADDRESS",
			"DOCKER_TARGET_REPOSITORY": "",
			"DOCKER_ENABLED":           "true",
		})
		findings := v.CheckDocker()

		// Address malformation and the missing repository are independent.
		s.Require().Len(findings, 2)
		s.Equal(report.MalformedAddress, findings[0].Kind)
		s.Equal(report.MissingField, findings[1].Kind)
		s.Equal("DOCKER_TARGET_REPOSITORY", findings[1].Field)
		s.Contains(findings[1].Detail, "DOCKER_ENABLED")
	})

	s.Run("disabled with empty fields", func() {
		v := s.newValidator(bindings.Bindings{
			"DOCKER_ADDRESS":           "",
			"DOCKER_TARGET_REPOSITORY": "",
			"DOCKER_ENABLED":           "false",
		})
		s.Empty(v.CheckDocker())
	})

	s.Run("enabled with repository", func() {
		v := s.newValidator(bindings.Bindings{
			"DOCKER_ADDRESS":           "docker.internal:2375",
			"DOCKER_TARGET_REPOSITORY": "registry.local:5000/team/app",
			"DOCKER_ENABLED":           "true",
		})
		s.Empty(v.CheckDocker())
	})

	s.Run("malformed flag still checks addresses", func() {
		v := s.newValidator(bindings.Bindings{
			"DOCKER_ADDRESS":           "docker.internal",
			"DOCKER_TARGET_REPOSITORY": "",
			"DOCKER_ENABLED":           "maybe",
		})
		findings := v.CheckDocker()
		s.Require().Len(findings, 1)
		s.Equal(report.InvalidValue, findings[0].Kind)
		s.Equal("DOCKER_ENABLED", findings[0].Field)
	})
}

func (s *CheckTestSuite) TestCheckJenkins() {
	s.Run("address without username", func() {
		v := s.newValidator(bindings.Bindings{
			"JENKINS_ADDRESS": "build.example.com:8080",
		})
		findings := v.CheckJenkins()
		s.Require().Len(findings, 1)
		s.Equal(report.MissingField, findings[0].Kind)
		s.Equal("JENKINS_USERNAME", findings[0].Field)
	})

	s.Run("address with username", func() {
		v := s.newValidator(bindings.Bindings{
			"JENKINS_ADDRESS":  "build.example.com:8080",
			"JENKINS_USERNAME": "deployer",
		})
		s.Empty(v.CheckJenkins())
	})

	s.Run("no address no username", func() {
		v := s.newValidator(bindings.Bindings{"JENKINS_ADDRESS": ""})
		s.Empty(v.CheckJenkins())
	})
}

func (s *CheckTestSuite) TestCheckUserAccessOnly() {
	testCases := []struct {
		name       string
		mode       fs.FileMode
		statErr    error
		expectedOK bool
		detail     string
	}{
		{
			name:       "nonexistent path passes",
			statErr:    os.ErrNotExist,
			expectedOK: true,
		},
		{
			name:       "owner-only",
			mode:       0o600,
			expectedOK: true,
		},
		{
			name:   "group readable",
			mode:   0o640,
			detail: "640",
		},
		{
			name:   "world readable",
			mode:   0o644,
			detail: "644",
		},
		{
			name:   "group executable",
			mode:   0o710,
			detail: "710",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			if tc.statErr != nil {
				s.fs.On("Stat", "/etc/cred.json").Return(nil, tc.statErr)
			} else {
				s.fs.On("Stat", "/etc/cred.json").
					Return(fakeFileInfo{name: "cred.json", mode: tc.mode}, nil)
			}

			v := s.newValidator(bindings.Bindings{})
			findings := v.CheckUserAccessOnly("/etc/cred.json")

			if tc.expectedOK {
				s.Empty(findings)
				return
			}
			s.Require().Len(findings, 1)
			s.Equal(report.InsecurePermissions, findings[0].Kind)
			s.Equal("/etc/cred.json", findings[0].Field)
			s.Contains(findings[0].Detail, tc.detail)
		})
	}
}

func (s *CheckTestSuite) TestCheckSecurity() {
	s.Run("credential file and config file both checked", func() {
		s.fs.On("Stat", "/etc/cred.json").
			Return(fakeFileInfo{name: "cred.json", mode: 0o640}, nil)
		s.fs.On("Stat", configPath).
			Return(fakeFileInfo{name: "spinnaker_config.cfg", mode: 0o644}, nil)

		v := s.newValidator(bindings.Bindings{
			"GOOGLE_JSON_CREDENTIAL_PATH": "/etc/cred.json",
		})
		findings := v.CheckSecurity()
		s.Require().Len(findings, 2)
		s.Equal("/etc/cred.json", findings[0].Field)
		s.Equal(configPath, findings[1].Field)
	})

	s.Run("unset credential path checks only the config file", func() {
		s.SetupTest()
		s.fs.On("Stat", configPath).
			Return(fakeFileInfo{name: "spinnaker_config.cfg", mode: 0o600}, nil)

		v := s.newValidator(bindings.Bindings{})
		s.Empty(v.CheckSecurity())
		s.fs.AssertNumberOfCalls(s.T(), "Stat", 1)
	})
}

func TestCheckSuite(t *testing.T) {
	suite.Run(t, new(CheckTestSuite))
}

// cleanBindings returns a bindings mapping with zero violations.
func cleanBindings() bindings.Bindings {
	return bindings.Bindings{
		"AWS_ENABLED":              "false",
		"DOCKER_ADDRESS":           "",
		"DOCKER_TARGET_REPOSITORY": "",
		"DOCKER_ENABLED":           "false",
		"JENKINS_ADDRESS":          "",
		"GOOGLE_ACCOUNT_NAME":      "my-spinnaker-account",
	}
}

type ValidateTestSuite struct {
	suite.Suite
	fs   *mocks.MockFS
	meta *mocks.MockMetadata
}

func (s *ValidateTestSuite) SetupTest() {
	s.fs = new(mocks.MockFS)
	s.meta = new(mocks.MockMetadata)
}

func (s *ValidateTestSuite) TestCleanRun() {
	s.meta.On("OnGCE").Return(false)
	s.meta.On("ProjectID", mock.Anything).Return("my-project", nil)
	s.fs.On("Stat", configPath).Return(nil, os.ErrNotExist)

	v := check.New(cleanBindings(), configPath, s.meta, check.WithFS(s.fs))
	rep, err := v.Validate(context.Background())

	s.Require().NoError(err)
	s.True(rep.OK())
	s.Empty(rep.Findings)
	s.Equal(configPath, rep.ConfigPath)
	s.NotEmpty(rep.RunID)
}

func (s *ValidateTestSuite) TestIdempotent() {
	s.meta.On("OnGCE").Return(false)
	s.meta.On("ProjectID", mock.Anything).Return("my-project", nil)
	s.fs.On("Stat", configPath).Return(nil, os.ErrNotExist)

	b := cleanBindings()
	b["DOCKER_ENABLED"] = "maybe"

	v := check.New(b, configPath, s.meta, check.WithFS(s.fs))

	first, err := v.Validate(context.Background())
	s.Require().NoError(err)
	second, err := v.Validate(context.Background())
	s.Require().NoError(err)

	// Each run yields a fresh report; findings never accumulate across calls.
	s.Equal(first.OK(), second.OK())
	s.Len(first.Findings, 1)
	s.Len(second.Findings, 1)
	s.NotEqual(first.RunID, second.RunID)
}

func (s *ValidateTestSuite) TestFatalProjectIDFetch() {
	s.meta.On("OnGCE").Return(false)
	s.meta.On("ProjectID", mock.Anything).
		Return("", context.DeadlineExceeded)

	v := check.New(cleanBindings(), configPath, s.meta, check.WithFS(s.fs))
	rep, err := v.Validate(context.Background())

	s.Require().Error(err)
	s.Nil(rep)
	s.ErrorContains(err, "cannot determine current project")
}

func (s *ValidateTestSuite) TestAccumulatesAcrossChecks() {
	s.meta.On("OnGCE").Return(false)
	s.meta.On("ProjectID", mock.Anything).Return("my-project", nil)
	s.fs.On("Stat", configPath).Return(nil, os.ErrNotExist)

	b := bindings.Bindings{
		"AWS_ENABLED":              "yes",
		"DOCKER_ADDRESS":           "Docker.Internal",
		"DOCKER_TARGET_REPOSITORY": "",
		"DOCKER_ENABLED":           "true",
		"JENKINS_ADDRESS":          "build.example.com:8080",
		"GOOGLE_ACCOUNT_NAME":      "not a name",
	}

	v := check.New(b, configPath, s.meta, check.WithFS(s.fs))
	rep, err := v.Validate(context.Background())

	s.Require().NoError(err)
	s.False(rep.OK())

	kinds := make(map[report.Kind]int)
	for _, f := range rep.Findings {
		kinds[f.Kind]++
	}
	s.Equal(1, kinds[report.MalformedResourceName]) // GOOGLE_ACCOUNT_NAME
	s.Equal(1, kinds[report.InvalidValue])          // AWS_ENABLED
	s.Equal(1, kinds[report.MalformedAddress])      // DOCKER_ADDRESS
	s.Equal(2, kinds[report.MissingField])          // target repo + jenkins user
}

func TestValidateSuite(t *testing.T) {
	suite.Run(t, new(ValidateTestSuite))
}
