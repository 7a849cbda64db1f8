package main

import (
	"flag"

	"github.com/danmuck/seqforge/internal/config"
	"github.com/danmuck/seqforge/internal/observability"
	"github.com/rs/zerolog/log"
)

const defaultPath = "seqforge"

func main() {
	observability.InitLogger("configgen")

	formatName := flag.String("format", "toml", "config format: toml|yaml")
	output := flag.String("output", "", "output path for config template (defaults to seqforge.<format>)")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to seqforge.<format>)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	format, err := config.ParseFormat(*formatName)
	if err != nil {
		log.Fatal().Err(err).Msg("configgen")
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath + "." + string(format)
		}
		if _, err := config.Load(path); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("configgen validate failed")
		}
		log.Info().Str("path", path).Msg("validated config")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath + "." + string(format)
	}
	if err := config.WriteTemplate(target, format, *force); err != nil {
		log.Fatal().Err(err).Msg("configgen write failed")
	}
	log.Info().Str("format", string(format)).Str("path", target).Msg("wrote config template")
}
