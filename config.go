package fedguard

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// SimulationConfig is read before each round and may change between rounds.
// Toggle fields enable the individual defense mechanisms; the remaining
// fields shape the synthetic client population and the attack.
type SimulationConfig struct {
	MomentumFIM             bool    `json:"momentumFIM" yaml:"momentumFIM"`
	StiffnessMask           bool    `json:"stiffnessMask" yaml:"stiffnessMask"`
	LayerWeightedClustering bool    `json:"layerWeightedClustering" yaml:"layerWeightedClustering"`
	NonIIDLevel             float64 `json:"nonIIDLevel" yaml:"nonIIDLevel"`
	AttackStealth           float64 `json:"attackStealth" yaml:"attackStealth"`
	ClientCount             int     `json:"clientCount" yaml:"clientCount"`
	MaliciousRatio          float64 `json:"maliciousRatio" yaml:"maliciousRatio"`
	VectorDimension         int     `json:"vectorDimension" yaml:"vectorDimension"`
	Seed                    int64   `json:"seed" yaml:"seed"`
}

func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		MomentumFIM:             true,
		StiffnessMask:           true,
		LayerWeightedClustering: true,
		NonIIDLevel:             0.5,
		AttackStealth:           0.5,
		ClientCount:             20,
		MaliciousRatio:          0.2,
		VectorDimension:         20,
		Seed:                    1,
	}
}

// AttackStrength derives the trigger-coordinate pull from the configured
// stealth. Preserved verbatim as a modeling choice: stealth 0 yields a flat
// offset of -7.5 on trigger coordinates.
func (c SimulationConfig) AttackStrength() float64 {
	return 1.5 - c.AttackStealth
}

func (c SimulationConfig) maliciousCount() int {
	return int(float64(c.ClientCount) * c.MaliciousRatio)
}

// LoadConfig reads every .json file in configDir in name order and overlays
// it onto the defaults. A missing directory is not an error; the defaults
// are returned so hostless runs need no config tree.
func LoadConfig(configDir string) (SimulationConfig, error) {
	config := DefaultSimulationConfig()

	files, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("failed to read config directory: %v", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		// Validate file name to prevent directory traversal
		if strings.Contains(file.Name(), "..") || strings.Contains(file.Name(), "/") {
			return config, fmt.Errorf("invalid file name: %s", file.Name())
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(configDir + "/" + name)
		if err != nil {
			return config, fmt.Errorf("failed to read config file %s: %v", name, err)
		}
		if len(data) > 1024*1024 {
			return config, fmt.Errorf("config file %s is too large", name)
		}
		if err := json.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config file %s: %v", name, err)
		}
	}

	return config, nil
}
