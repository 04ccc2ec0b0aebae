// questcheck loads a scene and reports every content gap: unknown chain
// references, missing talk targets, dangling jumps and gates that can
// never open. It exits non-zero when any gap is found.
//
// Usage:
//
//	go run ./cmd/questcheck -scene data/scene.yaml
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/npc"
)

func main() {
	sceneFile := flag.String("scene", "data/scene.yaml", "Path to scene YAML file or directory")
	verbose := flag.Bool("v", false, "List every NPC and its quest chain")
	flag.Parse()

	logCfg := logger.DefaultConfig()
	logCfg.Level = "warn"
	if err := logger.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	scene, err := npc.LoadScene(*sceneFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load scene: %v\n", err)
		os.Exit(1)
	}

	defs := scene.Definitions()
	if *verbose {
		for _, def := range defs {
			fmt.Printf("%s (%s): %d quest(s)\n", def.Name, def.ID, len(def.Chain))
			for i, step := range def.Chain {
				fmt.Printf("  [%d] %s (%s)\n", i, step.Title, step.Type.Kind())
			}
		}
	}

	gaps := scene.Validate()
	for _, gap := range gaps {
		fmt.Println(gap)
	}
	fmt.Printf("%d NPC(s), %d gate(s), %d problem(s)\n", len(defs), len(scene.GateList()), len(gaps))
	if len(gaps) > 0 {
		os.Exit(1)
	}
}
