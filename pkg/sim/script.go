package sim

import (
	"strings"

	"github.com/robotalks/imulink/pkg/l1/msgs"
)

var scriptAliases = map[string][]msgs.Kind{
	"1":    {msgs.KindButtonOne},
	"2":    {msgs.KindButtonTwo},
	"cal":  {msgs.KindCalibrationStarted, msgs.KindCalibrationEnded},
	"fail": {msgs.KindHardwareFailure},
}

// ParseScript parses comma separated event names or aliases.
func ParseScript(script string) ([]msgs.Kind, error) {
	var kinds []msgs.Kind
	for _, token := range strings.Split(script, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if alias, ok := scriptAliases[strings.ToLower(token)]; ok {
			kinds = append(kinds, alias...)
			continue
		}
		kind, err := msgs.ParseKind(token)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
