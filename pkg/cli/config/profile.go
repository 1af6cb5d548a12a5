package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/domain/model"
)

// Profile holds the CLI flag locating the bot profile file
type Profile struct {
	path string
}

// Flags returns CLI flags for bot profile configuration
func (x *Profile) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bot-profile",
			Usage:       "Path to the bot profile TOML file (persona and canned replies)",
			Category:    "Bot",
			Sources:     cli.EnvVars("TALARIA_BOT_PROFILE"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured profile file path
func (x *Profile) Path() string {
	return x.path
}

// Configure loads the bot profile from the configured path. Returns nil
// without error when no path is set; callers fall back to the default
// profile.
func (x *Profile) Configure() (*model.BotProfile, error) {
	if x.path == "" {
		return nil, nil
	}
	return LoadBotProfile(x.path)
}

// BotProfileFile is the TOML representation of a bot profile. Empty fields
// keep the default profile's value, so a file may override only the persona.
type BotProfileFile struct {
	Name        string       `toml:"name"`
	Persona     string       `toml:"persona"`
	Welcome     string       `toml:"welcome"`
	Fallback    string       `toml:"fallback"`
	RateLimited string       `toml:"rate_limited"`
	Unsupported string       `toml:"unsupported"`
	MenuPrompt  string       `toml:"menu_prompt"`
	Menu        []MenuButton `toml:"menu"`
}

// MenuButton is one quick-reply menu entry
type MenuButton struct {
	ID    string `toml:"id"`
	Title string `toml:"title"`
}

// Validate checks the quick-reply menu. The gateway accepts at most
// model.MaxButtons reply buttons per message.
func (f *BotProfileFile) Validate() error {
	if len(f.Menu) > model.MaxButtons {
		return goerr.Wrap(ErrTooManyButtons, "quick-reply menu exceeds the gateway button limit",
			goerr.V("count", len(f.Menu)),
			goerr.V("max", model.MaxButtons))
	}

	seen := make(map[string]bool)
	for i, btn := range f.Menu {
		if btn.ID == "" {
			return goerr.Wrap(ErrMissingButtonID, "menu button has no ID",
				goerr.V(ButtonIndexKey, i))
		}
		if btn.Title == "" {
			return goerr.Wrap(ErrMissingButtonTitle, "menu button has no title",
				goerr.V(ButtonIDKey, btn.ID))
		}
		if seen[btn.ID] {
			return goerr.Wrap(ErrDuplicateButtonID, "menu button ID appears twice",
				goerr.V(ButtonIDKey, btn.ID))
		}
		seen[btn.ID] = true
	}

	return nil
}

// ToDomain converts the file to a domain BotProfile, filling unset fields
// from the default profile.
func (f *BotProfileFile) ToDomain() *model.BotProfile {
	profile := model.DefaultBotProfile()

	if f.Name != "" {
		profile.Name = f.Name
	}
	if f.Persona != "" {
		profile.Persona = f.Persona
	}
	if f.Welcome != "" {
		profile.Welcome = f.Welcome
	}
	if f.Fallback != "" {
		profile.Fallback = f.Fallback
	}
	if f.RateLimited != "" {
		profile.RateLimited = f.RateLimited
	}
	if f.Unsupported != "" {
		profile.Unsupported = f.Unsupported
	}
	if f.MenuPrompt != "" {
		profile.MenuPrompt = f.MenuPrompt
	}

	for _, btn := range f.Menu {
		profile.Menu = append(profile.Menu, model.Button{ID: btn.ID, Title: btn.Title})
	}

	return profile
}

// LoadBotProfile loads and validates a bot profile from a TOML file
func LoadBotProfile(path string) (*model.BotProfile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrProfileNotFound, "cannot read bot profile",
				goerr.V(ProfilePathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read bot profile",
			goerr.V(ProfilePathKey, path))
	}

	var file BotProfileFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse bot profile TOML",
			goerr.V(ProfilePathKey, path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "bot profile validation failed",
			goerr.V(ProfilePathKey, path))
	}

	return file.ToDomain(), nil
}
