package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

type ModuleModelSuite struct {
	suite.Suite
	now time.Time
}

func TestModuleModelSuite(t *testing.T) {
	suite.Run(t, new(ModuleModelSuite))
}

func (s *ModuleModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ModuleModelSuite) TestNewDefinition() {
	s.Run("trims and activates", func() {
		d, err := NewDefinition("meals", "  Meal planner ", "1.2.0", s.now)
		s.Require().NoError(err)
		s.Equal("Meal planner", d.Name)
		s.True(d.IsActive)
	})

	s.Run("rejects bad input", func() {
		for _, tc := range []struct {
			module  id.ModuleID
			name    string
			version string
		}{
			{"Meals", "Meals", "1"},
			{"meals", " ", "1"},
			{"meals", "Meals", ""},
		} {
			_, err := NewDefinition(tc.module, tc.name, tc.version, s.now)
			s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation), "%+v", tc)
		}
	})
}

func (s *ModuleModelSuite) TestLifecycle() {
	inst, err := NewInstallation(id.TenantID(uuid.New()), "meals", id.Settings{"a": 1}, s.now)
	s.Require().NoError(err)
	s.Equal(StateEnabled, inst.State())

	s.ErrorIs(inst.Reinstall(id.Settings{}, s.now), ErrAlreadyInstalled)

	later := s.now.Add(time.Hour)
	s.Require().NoError(inst.Disable(later))
	s.Equal(StateDisabled, inst.State())
	s.Equal(id.Settings{"a": 1}, inst.Settings, "disable keeps settings")
	s.Equal(later, inst.UpdatedAt)

	s.ErrorIs(inst.Disable(later), ErrAlreadyDisabled)

	s.Require().NoError(inst.Reinstall(id.Settings{"b": 2}, later))
	s.Equal(id.Settings{"b": 2}, inst.Settings, "settings are replaced, not merged")
	s.Equal(s.now, inst.InstalledAt)

	var missing *Installation
	s.Equal(StateUninstalled, missing.State())
}

func (s *ModuleModelSuite) TestInstallationCopiesSettings() {
	settings := id.Settings{"a": 1}
	inst, err := NewInstallation(id.TenantID(uuid.New()), "meals", settings, s.now)
	s.Require().NoError(err)
	settings["a"] = 2
	s.Equal(1, inst.Settings["a"])

	clone := inst.Clone()
	clone.Settings["a"] = 3
	s.Equal(1, inst.Settings["a"])
}

func (s *ModuleModelSuite) TestInstallationRequiresIDs() {
	_, err := NewInstallation(id.TenantID{}, "meals", nil, s.now)
	s.Error(err)
	_, err = NewInstallation(id.TenantID(uuid.New()), "", nil, s.now)
	s.Error(err)
}

func (s *ModuleModelSuite) TestErrorCodes() {
	s.True(dErrors.HasCode(ErrNotActive, dErrors.CodeConflict))
	s.True(dErrors.HasCode(ErrNotInstalled, dErrors.CodeNotFound))
	s.Equal("module already disabled", ErrAlreadyDisabled.Error())
}
