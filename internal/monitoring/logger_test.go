package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger that must not call the previous one
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
}

func TestWarnf_RoutesThroughLogfByDefault(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()
	SetWarner(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		if len(v) > 0 {
			got = v[0].(string)
		}
	})

	Warnf("The camera cannot be set in %s", "AR")
	assert.Equal(t, "The camera cannot be set in AR", got)
}

func TestWarnf_SuppressesConsecutiveDuplicates(t *testing.T) {
	var msgs []string
	SetWarner(func(msg string) { msgs = append(msgs, msg) })
	defer SetWarner(nil)

	Warnf("Selection anchor already created")
	Warnf("Selection anchor already created")
	Warnf("Perspective cannot be set in AR")
	Warnf("Selection anchor already created")

	assert.Equal(t, []string{
		"Selection anchor already created",
		"Perspective cannot be set in AR",
		"Selection anchor already created",
	}, msgs)
}
