package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	districtcommands "evoting/contexts/election-control/district-registry/application/commands"
	districtdomainerrors "evoting/contexts/election-control/district-registry/domain/errors"
	phaseentities "evoting/contexts/election-control/phase-gate/domain/entities"
	identityentities "evoting/contexts/identity-access/identity-binder/domain/entities"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by the seed command.
type SeedFile struct {
	Districts  []SeedDistrict `yaml:"districts"`
	Identities []SeedIdentity `yaml:"identities"`
}

type SeedDistrict struct {
	Name       string `yaml:"name"`
	VoterCount int    `yaml:"voterCount"`
}

type SeedIdentity struct {
	IdentityID  string `yaml:"identityId"`
	Password    string `yaml:"password"`
	FullName    string `yaml:"fullName"`
	DateOfBirth string `yaml:"dateOfBirth"`
	PhoneNumber string `yaml:"phoneNumber"`
	District    string `yaml:"district"`
}

type SeedReport struct {
	DistrictsCreated  int
	DistrictsSkipped  int
	IdentitiesCreated int
}

func LoadSeedFile(path string) (SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return seed, nil
}

// Seed opens the not-started phase when no phase is active yet, creates the
// districts through the registry and imports the national identities.
// Districts that already exist are skipped.
func (rt *Runtime) Seed(ctx context.Context, seed SeedFile) (SeedReport, error) {
	modules := rt.Modules
	report := SeedReport{}

	if _, active, err := modules.Phases.Gate.CurrentPhase(ctx); err != nil {
		return report, err
	} else if !active {
		if _, err := modules.Phases.Handler.Activate.Execute(ctx, notStartedPhaseID()); err != nil {
			return report, fmt.Errorf("activate %s phase: %w", phaseentities.PhaseNotStarted, err)
		}
	}

	for _, district := range seed.Districts {
		_, err := modules.Districts.Districts.Create(ctx, districtcommands.CreateDistrictCommand{
			Name:       district.Name,
			VoterCount: district.VoterCount,
		})
		switch {
		case err == nil:
			report.DistrictsCreated++
		case errors.Is(err, districtdomainerrors.ErrDistrictExists):
			report.DistrictsSkipped++
		default:
			return report, fmt.Errorf("seed district %q: %w", district.Name, err)
		}
	}

	if len(seed.Identities) > 0 {
		items := make([]identityentities.IdentityImport, 0, len(seed.Identities))
		for _, identity := range seed.Identities {
			items = append(items, identityentities.IdentityImport{
				IdentityID:   identity.IdentityID,
				Password:     identity.Password,
				FullName:     identity.FullName,
				DateOfBirth:  identity.DateOfBirth,
				PhoneNumber:  identity.PhoneNumber,
				DistrictName: identity.District,
			})
		}
		created, err := modules.Identity.Importer.Execute(ctx, items)
		if err != nil {
			return report, fmt.Errorf("seed identities: %w", err)
		}
		report.IdentitiesCreated = created
	}
	return report, nil
}

func notStartedPhaseID() int64 {
	for _, phase := range phaseentities.DefaultPhases() {
		if phase.Name == phaseentities.PhaseNotStarted {
			return phase.PhaseID
		}
	}
	return 1
}
