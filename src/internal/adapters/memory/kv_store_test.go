package memory

import (
	"testing"

	"github.com/learnhub/learnhub/src/internal/adapters/storagetest"
)

func TestInMemoryKVStore(t *testing.T) {
	storagetest.Run(t, NewKVStore())
}
