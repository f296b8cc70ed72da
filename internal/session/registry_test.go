package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegister_SingleConnection(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)

	if !r.IsConnected("u1") {
		t.Fatal("expected u1 to be connected")
	}
	if !r.HasDeviceClass("u1", DeviceClassWeb) {
		t.Error("expected u1 to have WEB")
	}
	if r.HasDeviceClass("u1", DeviceClassMobile) {
		t.Error("u1 should not have MOBILE")
	}
	if got := r.ConnectionCount("u1"); got != 1 {
		t.Errorf("ConnectionCount = %d, want 1", got)
	}
}

func TestUnregister_PartialDisconnectRecomputesClasses(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)
	r.Register("u1", "c2", DeviceClassMobile)

	r.Unregister("", "c1")

	if r.HasDeviceClass("u1", DeviceClassWeb) {
		t.Error("WEB should be gone after its only connection closed")
	}
	if !r.HasDeviceClass("u1", DeviceClassMobile) {
		t.Error("MOBILE should survive")
	}
	if !r.IsConnected("u1") {
		t.Error("u1 should still be connected")
	}

	r.Unregister("", "c2")
	if r.IsConnected("u1") {
		t.Error("u1 should be fully disconnected")
	}
	if r.HasDeviceClass("u1", DeviceClassMobile) {
		t.Error("no device classes should remain")
	}
}

func TestUnregister_SharedClassSurvives(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)
	r.Register("u1", "c2", DeviceClassWeb)

	r.Unregister("u1", "c1")

	if !r.HasDeviceClass("u1", DeviceClassWeb) {
		t.Error("WEB should survive while another WEB connection is live")
	}
}

func TestUnregister_ResolvesUserFromReverseIndex(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)

	// Disconnect events may arrive without the authenticated identity.
	r.Unregister("", "c1")

	if r.IsConnected("u1") {
		t.Error("u1 should be disconnected")
	}
}

func TestUnregister_UnknownConnectionIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)

	r.Unregister("", "nope")

	if !r.IsConnected("u1") {
		t.Error("unknown connection cleanup must not touch other users")
	}
}

func TestUnregister_UserMismatchIgnored(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)

	r.Unregister("u2", "c1")

	if !r.IsConnected("u1") {
		t.Error("mismatched unregister must not remove u1's connection")
	}
}

func TestHasDeviceClass_Wildcard(t *testing.T) {
	r := NewRegistry()

	if r.HasDeviceClass("u1", DeviceClassAll) {
		t.Error("ALL must not match a disconnected user")
	}

	r.Register("u1", "c1", DeviceClassMobile)
	if !r.HasDeviceClass("u1", DeviceClassAll) {
		t.Error("ALL should match any live connection")
	}

	// A connection registered as ALL satisfies any queried class.
	r.Register("u2", "c2", DeviceClassAll)
	if !r.HasDeviceClass("u2", DeviceClassWeb) {
		t.Error("registered ALL should satisfy a WEB query")
	}
}

func TestRegister_EmptyDeviceClassDefaultsToAll(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", "")

	if !r.HasDeviceClass("u1", DeviceClassMobile) {
		t.Error("empty device class should register as ALL")
	}
}

func TestDeviceClasses_Copy(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1", DeviceClassWeb)
	r.Register("u1", "c2", DeviceClassMobile)

	classes := r.DeviceClasses("u1")
	if len(classes) != 2 {
		t.Fatalf("DeviceClasses = %v, want 2 entries", classes)
	}

	if got := r.DeviceClasses("ghost"); got != nil {
		t.Errorf("DeviceClasses for unknown user = %v, want nil", got)
	}
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	const users = 8
	const connsPerUser = 20

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", u)
			for c := 0; c < connsPerUser; c++ {
				connID := fmt.Sprintf("u%d-c%d", u, c)
				class := DeviceClassWeb
				if c%2 == 0 {
					class = DeviceClassMobile
				}
				r.Register(userID, connID, class)
			}
			for c := 0; c < connsPerUser; c++ {
				r.Unregister("", fmt.Sprintf("u%d-c%d", u, c))
			}
		}(u)
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("u%d", u)
		if r.IsConnected(userID) {
			t.Errorf("%s still connected after full churn", userID)
		}
	}
}
