package memory_test

import (
	"testing"

	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/jrsteele09/go-mock-oauth/store/memory"
	"github.com/jrsteele09/go-mock-oauth/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}
