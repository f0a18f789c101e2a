package services_test

import (
	"testing"

	"bazaar/internal/logger"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	logger.Discard()
	goleak.VerifyTestMain(m)
}
