package service

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
)

// Seed is the layout of a seed file.
type Seed struct {
	Employees []EmployeeInput `json:"employees"`
	Projects  []model.Project `json:"projects"`
}

// ReadSeedFile decodes a YAML seed file.
func ReadSeedFile(path string) (Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	var data Seed
	if err := k.UnmarshalWithConf("", &data, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return data, nil
}

// loadSeed upserts the employees and projects of a YAML seed file. Records
// with an id replace the stored one; employees without an id are matched by
// email so reseeding does not trip the unique email.
func (s *Service) loadSeed(ctx context.Context, path string) error {
	data, err := ReadSeedFile(path)
	if err != nil {
		return err
	}

	for _, in := range data.Employees {
		if in.ID == "" {
			if existing, err := s.store.GetEmployeeByEmail(ctx, in.Email); err == nil {
				in.ID = existing.ID
			}
		}
		if in.Password != "" {
			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return fmt.Errorf("seed employee %s: %w", in.Email, err)
			}
			in.PasswordHash = hash
		}
		if _, err := s.store.PutEmployee(ctx, in.Employee); err != nil {
			return fmt.Errorf("seed employee %s: %w", in.Email, err)
		}
	}
	for _, p := range data.Projects {
		if _, err := s.store.PutProject(ctx, p); err != nil {
			return fmt.Errorf("seed project %s: %w", p.Name, err)
		}
	}

	s.logger.Info(ctx, "loaded seed file",
		logger.String("path", path),
		logger.Int("employees", len(data.Employees)),
		logger.Int("projects", len(data.Projects)),
	)
	return nil
}
