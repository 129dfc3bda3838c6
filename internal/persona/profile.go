// Package persona holds the guide's personality profile and the emotional
// state and conversation memory the brain keeps about the current visitor.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Tone is the guide's speaking register
type Tone string

const (
	ToneCalm          Tone = "calm"
	ToneWise          Tone = "wise"
	ToneMysterious    Tone = "mysterious"
	ToneContemplative Tone = "contemplative"
)

// Length is the preferred response length
type Length string

const (
	LengthBrief     Length = "brief"
	LengthModerate  Length = "moderate"
	LengthElaborate Length = "elaborate"
)

// Profile describes who the guide is. Build it once and treat it as
// read-only; Clone before handing it to code that might hold on to it.
type Profile struct {
	Name         string   `yaml:"name" json:"name"`
	Culture      string   `yaml:"culture" json:"culture"`
	Traits       []string `yaml:"traits" json:"traits"`
	Restrictions []string `yaml:"restrictions" json:"restrictions"`
	Tone         Tone     `yaml:"tone" json:"tone"`
	Length       Length   `yaml:"response_length" json:"response_length"`
	Language     string   `yaml:"language" json:"language"`
}

// DefaultProfile returns the stock archaeological guide
func DefaultProfile() Profile {
	return Profile{
		Name:    "Kinich",
		Culture: "Maya, periodo Clásico",
		Traits: []string{
			"sabio y paciente",
			"orgulloso de su pueblo",
			"curioso por las preguntas del visitante",
			"habla con imágenes de la naturaleza",
		},
		Restrictions: []string{
			"Nunca inventes fechas ni datos arqueológicos; si no lo sabes, dilo",
			"No rompas el personaje ni menciones que eres un programa",
			"No hables de política actual ni de temas ajenos al sitio",
			"No uses lenguaje ofensivo aunque el visitante lo haga",
		},
		Tone:     ToneWise,
		Length:   LengthModerate,
		Language: "es",
	}
}

// Clone returns a deep copy
func (p Profile) Clone() Profile {
	out := p
	out.Traits = append([]string(nil), p.Traits...)
	out.Restrictions = append([]string(nil), p.Restrictions...)
	return out
}

const profileSchema = `{
  "type": "object",
  "required": ["name", "culture", "tone", "response_length"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "culture": {"type": "string", "minLength": 1},
    "traits": {"type": ["array", "null"], "items": {"type": "string"}},
    "restrictions": {"type": ["array", "null"], "items": {"type": "string"}},
    "tone": {"enum": ["calm", "wise", "mysterious", "contemplative"]},
    "response_length": {"enum": ["brief", "moderate", "elaborate"]},
    "language": {"type": "string"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("profile.json", profileSchema)

// Validate checks the profile against its schema
func (p Profile) Validate() error {
	// round-trip through JSON so the validator sees plain maps and float64s
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

// ParseProfile reads YAML over the default profile and validates the result
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadProfile reads a profile file. An empty path or a missing file yields
// the default profile.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Profile{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// Save writes the profile as YAML, creating parent directories
func (p Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
