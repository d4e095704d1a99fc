// server steps a randomly initialized simulation and serves its state over
// HTTP, see internal/app.
package main

import (
	"github.com/rs/zerolog/log"
	"github.com/suxatcode/gravity-sim/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
