package playermodule

import (
	"github.com/mantonx/playerd/internal/modules/modulemanager"
)

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers the player module with the module system
func Register() {
	modulemanager.Register(NewModule())
}
