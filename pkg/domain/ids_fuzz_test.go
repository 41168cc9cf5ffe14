package domain

import (
	"testing"
)

// FuzzParseDepartmentID checks that any accepted department id survives the
// trip through the database driver and text encodings unchanged.
func FuzzParseDepartmentID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("{550e8400-e29b-41d4-a716-446655440000}")
	f.Add("urn:uuid:550e8400-e29b-41d4-a716-446655440000")
	f.Add("550e8400e29b41d4a716446655440000")
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00")

	f.Fuzz(func(t *testing.T, input string) {
		deptID, err := ParseDepartmentID(input)
		if err != nil {
			return
		}
		if deptID.IsNil() {
			t.Fatal("nil department id accepted")
		}

		v, err := deptID.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		var scanned DepartmentID
		if err := scanned.Scan(v); err != nil {
			t.Fatalf("Scan(%v): %v", v, err)
		}
		if scanned != deptID {
			t.Fatalf("driver round-trip changed %s to %s", deptID, scanned)
		}

		text, err := deptID.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var decoded DepartmentID
		if err := decoded.UnmarshalText(text); err != nil || decoded != deptID {
			t.Fatalf("text round-trip of %q failed: %v", text, err)
		}
	})
}

// FuzzIDKindsAgree keeps every Parse* function on the same grammar.
func FuzzIDKindsAgree(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("not-a-uuid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		_, errDept := ParseDepartmentID(input)
		_, errNotification := ParseNotificationID(input)
		_, errDelivery := ParseDeliveryID(input)

		ok := errUser == nil
		if (errDept == nil) != ok || (errNotification == nil) != ok || (errDelivery == nil) != ok {
			t.Errorf("id kinds disagree on %q", input)
		}
	})
}
