package workspace

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOSFS_StatFailuresMeanAbsent(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "permission denied", err: fs.ErrPermission},
		{name: "not exist", err: fs.ErrNotExist},
		{name: "transient I/O", err: errors.New("input/output error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := statFn
			t.Cleanup(func() { statFn = orig })
			statFn = func(string) (os.FileInfo, error) { return nil, tt.err }

			assert.False(t, OSFS{}.Exists("/ws/src/Card.preview.png"))
		})
	}
}
