// Package env provides facts about the host the tools run on.
package env

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID is mixed into the protected machine id.
const AppID = "actuator"

// MachineID retrieves an ID identifying the machine. The raw machine id is
// never exposed, it's hashed with AppID. Falls back to the hostname.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	host, _ := os.Hostname()
	sum := sha256.Sum256([]byte(AppID + "/" + host))
	return hex.EncodeToString(sum[:])
}

// ShortID is the first 12 characters of MachineID, used in client ids and
// topic prefixes.
func ShortID() string {
	id := MachineID()
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
