package memory

import (
	"testing"

	"github.com/bcnelson/guacamole-csv-importer/internal/storage"
	"github.com/bcnelson/guacamole-csv-importer/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}
