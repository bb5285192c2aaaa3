// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sua-org/court-cam/internal/core"
)

// File é o sources.yaml: lista ordenada de câmeras e, opcionalmente,
// listeners UDP dedicados a um grupo (botões legados por quadra).
//
//	sources:
//	  - name: Court 1 Cam
//	    uri: rtsp://10.0.0.11:554/stream1
//	    group_id: 1
//	triggers:
//	  - group_id: 1
//	    listen: 0.0.0.0:12346
type File struct {
	Sources  []core.Source `yaml:"sources"`
	Triggers []Trigger     `yaml:"triggers,omitempty"`
}

type Trigger struct {
	GroupID int    `yaml:"group_id"`
	Listen  string `yaml:"listen"`
}

// LoadFromEnv lê SOURCES_FILE (default sources.yaml).
func LoadFromEnv() (*File, error) {
	path := strings.TrimSpace(os.Getenv("SOURCES_FILE"))
	if path == "" {
		path = "sources.yaml"
	}
	return Load(path)
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse valida e atribui os IDs na ordem do arquivo.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("yaml inválido: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, errors.New("nenhuma câmera em sources")
	}

	groups := map[int]bool{}
	names := map[string]bool{}
	for i := range f.Sources {
		s := &f.Sources[i]
		s.ID = i
		s.Name = strings.TrimSpace(s.Name)
		s.URI = strings.TrimSpace(s.URI)
		if s.Name == "" {
			return nil, fmt.Errorf("sources[%d]: name vazio", i)
		}
		if s.URI == "" {
			return nil, fmt.Errorf("sources[%d] (%s): uri vazio", i, s.Name)
		}
		if names[s.Name] {
			return nil, fmt.Errorf("sources[%d]: nome duplicado %q", i, s.Name)
		}
		names[s.Name] = true
		groups[s.GroupID] = true
	}

	listens := map[string]bool{}
	for i, t := range f.Triggers {
		t.Listen = strings.TrimSpace(t.Listen)
		if t.Listen == "" {
			return nil, fmt.Errorf("triggers[%d]: listen vazio", i)
		}
		if !groups[t.GroupID] {
			return nil, fmt.Errorf("triggers[%d]: grupo %d sem câmeras", i, t.GroupID)
		}
		if listens[t.Listen] {
			return nil, fmt.Errorf("triggers[%d]: endereço %s repetido", i, t.Listen)
		}
		listens[t.Listen] = true
		f.Triggers[i] = t
	}
	return &f, nil
}
