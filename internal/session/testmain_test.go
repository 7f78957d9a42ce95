package session

import (
	"os"
	"testing"

	"github.com/trackfix-data/trackfix/internal/monitoring"
)

func TestMain(m *testing.M) {
	restore := monitoring.Mute()
	code := m.Run()
	restore()
	os.Exit(code)
}
