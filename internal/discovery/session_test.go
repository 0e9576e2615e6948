package discovery

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncement_Entry(t *testing.T) {
	tests := []struct {
		name   string
		a      Announcement
		want   string
		wantOK bool
	}{
		{
			name:   "prefixed target used verbatim",
			a:      Announcement{Target: "TCP:10.0.0.5", DeviceName: "LAN-PRN"},
			want:   "TCP:10.0.0.5:LAN-PRN",
			wantOK: true,
		},
		{
			name:   "ip without name gets default name",
			a:      Announcement{IPAddress: "10.0.0.9"},
			want:   "TCP:10.0.0.9:Printer",
			wantOK: true,
		},
		{
			name:   "prefixed target wins over ip",
			a:      Announcement{Target: "TCP:10.0.0.5", IPAddress: "10.0.0.6", DeviceName: "A"},
			want:   "TCP:10.0.0.5:A",
			wantOK: true,
		},
		{
			name:   "ip wins over bare target",
			a:      Announcement{Target: "printer.local", IPAddress: "10.0.0.3", DeviceName: "B"},
			want:   "TCP:10.0.0.3:B",
			wantOK: true,
		},
		{
			name:   "bare target gets prefix",
			a:      Announcement{Target: "192.168.1.40", DeviceName: "TM-m30III"},
			want:   "TCP:192.168.1.40:TM-m30III",
			wantOK: true,
		},
		{
			name:   "empty ip and no target is dropped",
			a:      Announcement{IPAddress: "", DeviceName: "X"},
			wantOK: false,
		},
		{
			name:   "nothing at all is dropped",
			a:      Announcement{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Entry(PortTCP)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnnouncement_BluetoothPrefix(t *testing.T) {
	got, ok := Announcement{Target: "00:11:22:33:44:55"}.Entry(PortBluetooth)
	require.True(t, ok)
	assert.Equal(t, "BT:00:11:22:33:44:55:Printer", got)
}

func TestSession_DistinctEntriesKeepOrder(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))

	var want []string
	for i := 1; i <= 10; i++ {
		ip := fmt.Sprintf("10.0.0.%d", 11-i)
		s.Ingest(Announcement{IPAddress: ip, DeviceName: "P"})
		want = append(want, "TCP:"+ip+":P")
	}

	assert.Equal(t, want, s.Snapshot())
}

func TestSession_DuplicateIsNoop(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))

	assert.True(t, s.Ingest(Announcement{IPAddress: "10.0.0.9"}))
	// Same derived entry through a different field.
	assert.False(t, s.Ingest(Announcement{Target: "TCP:10.0.0.9"}))
	assert.False(t, s.Ingest(Announcement{IPAddress: "10.0.0.9"}))

	assert.Equal(t, []string{"TCP:10.0.0.9:Printer"}, s.Snapshot())
}

func TestSession_DedupIsCaseSensitive(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))

	s.Ingest(Announcement{IPAddress: "10.0.0.1", DeviceName: "tm-m30"})
	s.Ingest(Announcement{IPAddress: "10.0.0.1", DeviceName: "TM-M30"})

	assert.Equal(t, 2, s.Len())
}

func TestSession_DroppedAnnouncementLeavesSnapshot(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))
	s.Ingest(Announcement{IPAddress: "10.0.0.2"})

	assert.False(t, s.Ingest(Announcement{IPAddress: "", DeviceName: "X"}))
	assert.Equal(t, []string{"TCP:10.0.0.2:Printer"}, s.Snapshot())
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))
	s.Ingest(Announcement{IPAddress: "10.0.0.2"})

	snap := s.Snapshot()
	snap[0] = "mutated"
	s.Ingest(Announcement{IPAddress: "10.0.0.3"})

	assert.Equal(t, []string{"TCP:10.0.0.2:Printer", "TCP:10.0.0.3:Printer"}, s.Snapshot())
	assert.Len(t, snap, 1)
}

func TestSession_EmptySnapshotNotNil(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))
	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestSession_IgnoresAfterClose(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))
	s.Ingest(Announcement{IPAddress: "10.0.0.2"})

	final := s.close()
	assert.Equal(t, SessionStopped, s.State())
	assert.False(t, s.Ingest(Announcement{IPAddress: "10.0.0.3"}))
	assert.Equal(t, final, s.Snapshot())
}

func TestSession_ConcurrentIngest(t *testing.T) {
	s := NewSession(TCPPrinterFilter(VendorAny))

	const workers = 20
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Every worker reports every device; only one copy may survive.
				s.OnDiscovered(Announcement{IPAddress: fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)})
				_ = s.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap, perWorker)

	seen := make(map[string]bool)
	for _, e := range snap {
		assert.False(t, seen[e], "duplicate entry %s", e)
		seen[e] = true
	}
}
