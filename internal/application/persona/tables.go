// Package persona 人格知识表、人格合成策略与人格自述生成
package persona

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"astro-persona-api/internal/domain/entity"
)

//go:embed traits.yaml
var traitsYAML []byte

// PlanetTraits 行星的关注点（WHAT）与角色设定
type PlanetTraits struct {
	Concerns  string `yaml:"concerns"`
	Archetype string `yaml:"archetype"`
	Narrative string `yaml:"narrative"`
	Voice     string `yaml:"voice"`
}

// SignTraits 星座的表达方式（HOW）
type SignTraits struct {
	Style   string `yaml:"style"`
	Voice   string `yaml:"voice"`
	Flavour string `yaml:"flavour"`
}

// Tables 只读的人格知识表，进程内加载一次
type Tables struct {
	Planets    map[entity.Body]PlanetTraits
	Signs      map[entity.Sign]SignTraits
	Houses     map[entity.House]string
	Retrograde string
	Closing    string
}

type rawTables struct {
	Planets    map[string]PlanetTraits `yaml:"planets"`
	Signs      map[string]SignTraits   `yaml:"signs"`
	Houses     map[int]string          `yaml:"houses"`
	Retrograde string                  `yaml:"retrograde"`
	Closing    string                  `yaml:"closing"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// DefaultTables 内嵌知识表
func DefaultTables() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = ParseTables(traitsYAML)
	})
	return defaultTables, defaultErr
}

// MustDefaultTables 内嵌知识表，解析失败时 panic
func MustDefaultTables() *Tables {
	t, err := DefaultTables()
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTables 解析 YAML 知识表并校验覆盖完整
func ParseTables(data []byte) (*Tables, error) {
	var raw rawTables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse persona tables: %w", err)
	}

	t := &Tables{
		Planets:    make(map[entity.Body]PlanetTraits, len(raw.Planets)),
		Signs:      make(map[entity.Sign]SignTraits, len(raw.Signs)),
		Houses:     make(map[entity.House]string, len(raw.Houses)),
		Retrograde: raw.Retrograde,
		Closing:    raw.Closing,
	}
	for name, traits := range raw.Planets {
		b, ok := entity.ParseBody(name)
		if !ok {
			return nil, fmt.Errorf("persona tables: unknown planet %q", name)
		}
		t.Planets[b] = traits
	}
	for name, traits := range raw.Signs {
		s, ok := entity.ParseSign(name)
		if !ok {
			return nil, fmt.Errorf("persona tables: unknown sign %q", name)
		}
		t.Signs[s] = traits
	}
	for n, focus := range raw.Houses {
		if !entity.House(n).Valid() {
			return nil, fmt.Errorf("persona tables: invalid house %d", n)
		}
		t.Houses[entity.House(n)] = focus
	}

	for _, b := range entity.AllBodies() {
		if _, ok := t.Planets[b]; !ok {
			return nil, fmt.Errorf("persona tables: missing planet %s", b)
		}
	}
	for _, s := range entity.AllSigns() {
		if _, ok := t.Signs[s]; !ok {
			return nil, fmt.Errorf("persona tables: missing sign %s", s)
		}
	}
	for h := entity.House(1); h <= 12; h++ {
		if _, ok := t.Houses[h]; !ok {
			return nil, fmt.Errorf("persona tables: missing house %d", h)
		}
	}
	return t, nil
}
