package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/infrastructure/llm"
	"astro-persona-api/internal/infrastructure/persistence/memory"
	einoobs "astro-persona-api/internal/observability/eino"
	"astro-persona-api/internal/wire"
)

type personaFlags struct {
	planet     string
	sign       string
	house      int
	retrograde bool
	strategy   string
	generate   bool
}

var personaOpts personaFlags

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Print the persona prompt for a placement",
	Example: `  chartctl persona --planet mars --sign aries --house 3 --retrograde
  chartctl persona --planet venus --sign libra --strategy voice --generate`,
	RunE: runPersona,
}

func init() {
	f := personaCmd.Flags()
	f.StringVar(&personaOpts.planet, "planet", "", "planet name")
	f.StringVar(&personaOpts.sign, "sign", "", "zodiac sign")
	f.IntVar(&personaOpts.house, "house", 0, "house 1-12, 0 omits the house clause")
	f.BoolVar(&personaOpts.retrograde, "retrograde", false, "placement is retrograde")
	f.StringVar(&personaOpts.strategy, "strategy", "", "layered, voice or archetype")
	f.BoolVar(&personaOpts.generate, "generate", false, "also ask the configured model for a first-person self-description")
	_ = personaCmd.MarkFlagRequired("planet")
	_ = personaCmd.MarkFlagRequired("sign")
}

func runPersona(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if personaOpts.strategy != "" {
		cfg.Persona.Strategy = personaOpts.strategy
	}

	body, ok := entity.ParseBody(personaOpts.planet)
	if !ok {
		return fmt.Errorf("unknown planet %q", personaOpts.planet)
	}
	sign, ok := entity.ParseSign(personaOpts.sign)
	if !ok {
		return fmt.Errorf("unknown sign %q", personaOpts.sign)
	}

	compositor, err := wire.ProvideCompositor(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, compositor.Compose(body, sign, entity.House(personaOpts.house), personaOpts.retrograde))

	if !personaOpts.generate {
		return nil
	}
	einoobs.Init()
	provider := wire.ProvideLLMProvider(llm.NewEinoFactory(cfg))
	generator := wire.ProvideGenerator(cfg, provider, compositor, memory.NewCache())
	text, err := generator.Generate(cmd.Context(), body, sign, personaOpts.retrograde)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, text)
	return nil
}
