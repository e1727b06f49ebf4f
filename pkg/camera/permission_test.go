package camera

import (
	"errors"
	"testing"
)

type fakePermission struct {
	check      Status
	request    Status
	checkErr   error
	requestErr error
	requested  int
}

func (p *fakePermission) Check() (Status, error) {
	return p.check, p.checkErr
}

func (p *fakePermission) Request() (Status, error) {
	p.requested++
	return p.request, p.requestErr
}

func TestResolve(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name          string
		perm          *fakePermission
		wantGranted   bool
		wantRequested int
		wantErr       error
	}{
		{
			name:        "already granted",
			perm:        &fakePermission{check: Granted},
			wantGranted: true,
		},
		{
			name:          "granted on request",
			perm:          &fakePermission{check: Undetermined, request: Granted},
			wantGranted:   true,
			wantRequested: 1,
		},
		{
			name:          "denied after request",
			perm:          &fakePermission{check: Denied, request: Denied},
			wantRequested: 1,
		},
		{
			name:          "request still undetermined",
			perm:          &fakePermission{check: Undetermined, request: Undetermined},
			wantRequested: 1,
		},
		{
			name:    "check error",
			perm:    &fakePermission{checkErr: boom},
			wantErr: boom,
		},
		{
			name:          "request error",
			perm:          &fakePermission{check: Denied, requestErr: boom},
			wantRequested: 1,
			wantErr:       boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			granted, err := Resolve(tt.perm)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if granted != tt.wantGranted {
				t.Errorf("Expected granted=%v, got %v", tt.wantGranted, granted)
			}
			if tt.perm.requested != tt.wantRequested {
				t.Errorf("Expected %d requests, got %d", tt.wantRequested, tt.perm.requested)
			}
		})
	}
}

func TestStaticPermission(t *testing.T) {
	granted, err := Resolve(StaticPermission(Granted))
	if err != nil || !granted {
		t.Errorf("Expected granted, got %v (%v)", granted, err)
	}
	granted, err = Resolve(StaticPermission(Denied))
	if err != nil || granted {
		t.Errorf("Expected denied, got %v (%v)", granted, err)
	}
}

func TestStatusString(t *testing.T) {
	if Granted.String() != "granted" || Denied.String() != "denied" || Undetermined.String() != "undetermined" {
		t.Errorf("Unexpected status names: %s %s %s", Granted, Denied, Undetermined)
	}
}
