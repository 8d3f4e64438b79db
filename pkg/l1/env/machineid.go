package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const (
	appID       = "imulink"
	shortIDSize = 12
)

// MachineID retrieves a short ID identifying the machine, derived from
// the machine id so the raw value isn't exposed on the broker.
// It returns fallback when the machine id is not available.
func MachineID(fallback string) string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return fallback
	}
	if len(id) > shortIDSize {
		id = id[:shortIDSize]
	}
	return id
}
