package helper

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PrettyPrint renders any value as indented JSON on stdout. CLI output
// helper, not for logs.
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("could not pretty print value")
		return
	}
	fmt.Println(string(b))
}
