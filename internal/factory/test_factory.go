package factory

import (
	"time"

	"github.com/mcoot/teamroster/internal/dependencies/mocks"
	"github.com/mcoot/teamroster/internal/services/password"
	"github.com/mcoot/teamroster/internal/storage/memory"
	"github.com/mcoot/teamroster/internal/testutil"
)

// TestSecret is the signing secret used by test apps
const TestSecret = "0123456789abcdef0123456789abcdef"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Memory is the backing store, exposed for seeding
	Memory *memory.Storage

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App on memory storage with a mock clock
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	hasher, err := password.NewBcryptHasher()
	if err != nil {
		panic(err)
	}

	app, err := newWithDependencies(store, mockClock, hasher, []byte(TestSecret), testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:       app,
		Memory:    store,
		MockClock: mockClock,
	}
}
