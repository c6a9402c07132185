package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/trafficsim/sim"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// lookupFunc has the signature of os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// stringOption returns the value of a flag if it is set on the command line,
// then the value of its environment variable, and finally the flag default.
func stringOption(cmd *cobra.Command, flag string, lookup lookupFunc) string {
	f := cmd.Flag(flag)
	if f.Changed {
		return f.Value.String()
	}

	if v, ok := lookup(envName(flag)); ok {
		return v
	}

	return f.DefValue
}

func intOption(cmd *cobra.Command, flag string, lookup lookupFunc) (int64, error) {
	s := stringOption(cmd, flag, lookup)

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: %w", s, flag, err)
	}

	return v, nil
}

func floatOption(cmd *cobra.Command, flag string, lookup lookupFunc) (float64, error) {
	s := stringOption(cmd, flag, lookup)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: %w", s, flag, err)
	}

	return v, nil
}

func boolOption(cmd *cobra.Command, flag string, lookup lookupFunc) (bool, error) {
	s := stringOption(cmd, flag, lookup)

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s: %w", s, flag, err)
	}

	return v, nil
}

// loadConfig builds the simulation configuration. The defaults are first
// overridden by the environment and then by the YAML file at path, if any.
func loadConfig(path string, lookup lookupFunc) (sim.Config, error) {
	config := sim.DefaultConfig()

	if err := applyEnv(&config, lookup); err != nil {
		return sim.Config{}, err
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return sim.Config{}, fmt.Errorf("reading config: %w", err)
		}

		if err := yaml.Unmarshal(content, &config); err != nil {
			return sim.Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return sim.Config{}, err
	}

	return config, nil
}

func applyEnv(config *sim.Config, lookup lookupFunc) error {
	if v, ok := lookup(envPrefix + "MAX_SPEED"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_SPEED: %w", envPrefix, err)
		}
		config.MaxSpeed = f
	}

	ints := []struct {
		name  string
		field *int
	}{
		{"GREEN_DURATION", &config.GreenDuration},
		{"RED_DURATION", &config.RedDuration},
	}

	for _, i := range ints {
		v, ok := lookup(envPrefix + i.name)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, i.name, err)
		}
		*i.field = n
	}

	if v, ok := lookup(envPrefix + "OVER_TRAFFIC_THRESHOLD"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sOVER_TRAFFIC_THRESHOLD: %w", envPrefix, err)
		}
		config.OverTrafficThreshold = n
	}

	return nil
}
