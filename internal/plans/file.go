package plans

import (
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/altar-plans/internal/domain"
	"gopkg.in/yaml.v3"
)

type planFile struct {
	Plans []*domain.StudyPlan `yaml:"plans"`
}

// LoadFile reads plan definitions from a YAML file of the form
//
//	plans:
//	  - id: romans
//	    title: Romans
//	    readings:
//	      - day: 1
//	        passages: ["Romans 1"]
//
// A missing file yields no plans.
func LoadFile(path string) ([]*domain.StudyPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plans file: %w", err)
	}

	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plans file %s: %w", path, err)
	}

	for i, p := range f.Plans {
		if p == nil || p.ID == "" {
			return nil, fmt.Errorf("plans file %s: entry %d has no id", path, i)
		}
		if err := validate(p.Title, p.Readings); err != nil {
			return nil, fmt.Errorf("plans file %s: plan %s: %w", path, p.ID, err)
		}
		p.Duration = len(p.Readings)
		if p.Source == "" {
			p.Source = "file"
		}
	}
	return f.Plans, nil
}
