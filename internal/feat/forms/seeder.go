package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cliossg/intake/pkg/cl/logger"
)

// SeedFile is the YAML layout of locally authored forms.
type SeedFile struct {
	Trainings []Training   `yaml:"trainings"`
	Forms     []FormSchema `yaml:"forms"`
}

// Seeder loads trainings and form schemas into the local database at start.
type Seeder struct {
	dbProvider DBProvider
	path       string
	log        logger.Logger
}

// NewSeeder creates a seeder for the YAML file at path.
func NewSeeder(dbProvider DBProvider, path string, log logger.Logger) *Seeder {
	return &Seeder{dbProvider: dbProvider, path: path, log: log}
}

// Start upserts every training and form found in the seed file. A missing
// file is not an error.
func (s *Seeder) Start(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Infof("No form seed file at %s, skipping form seeding", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read form seed file: %w", err)
	}

	seed, err := ParseSeed(data)
	if err != nil {
		return err
	}

	if err := s.Apply(ctx, seed); err != nil {
		return err
	}

	s.log.Infof("Seeded %d trainings and %d forms from %s", len(seed.Trainings), len(seed.Forms), s.path)
	return nil
}

// ParseSeed decodes and checks a seed document.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("cannot parse form seed file: %w", err)
	}

	for _, f := range seed.Forms {
		if f.ID == "" {
			return nil, fmt.Errorf("form %q has no id", f.Title)
		}
		seen := make(map[string]bool, len(f.Fields))
		for _, fd := range f.Fields {
			if fd.Name == "" {
				return nil, fmt.Errorf("form %s has a field without name", f.ID)
			}
			if seen[fd.Name] {
				return nil, fmt.Errorf("form %s declares field %s twice", f.ID, fd.Name)
			}
			seen[fd.Name] = true
		}
	}
	return &seed, nil
}

// Apply writes seed in one transaction.
func (s *Seeder) Apply(ctx context.Context, seed *SeedFile) error {
	tx, err := s.dbProvider.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range seed.Trainings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trainings (id, title) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title`,
			t.ID, t.Title,
		)
		if err != nil {
			return fmt.Errorf("cannot seed training %s: %w", t.ID, err)
		}
	}

	for _, f := range seed.Forms {
		fields, err := json.Marshal(f.Fields)
		if err != nil {
			return fmt.Errorf("cannot encode fields of form %s: %w", f.ID, err)
		}
		settings, err := json.Marshal(f.Settings)
		if err != nil {
			return fmt.Errorf("cannot encode settings of form %s: %w", f.ID, err)
		}

		kind := f.Kind
		if kind == "" {
			kind = KindTrainingRegistration
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO form_schemas (id, title, kind, training_id, fields, settings)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				kind = excluded.kind,
				training_id = excluded.training_id,
				fields = excluded.fields,
				settings = excluded.settings,
				updated_at = CURRENT_TIMESTAMP`,
			f.ID, f.Title, string(kind), nullString(f.TrainingID), string(fields), string(settings),
		)
		if err != nil {
			return fmt.Errorf("cannot seed form %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit seed: %w", err)
	}
	return nil
}
