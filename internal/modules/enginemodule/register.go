package enginemodule

import (
	"github.com/mantonx/playerd/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers the engine module with the module system
func Register() {
	modulemanager.Register(NewModule())
}
