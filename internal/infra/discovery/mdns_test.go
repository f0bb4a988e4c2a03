package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestFromEntry(t *testing.T) {
	tests := []struct {
		name   string
		entry  *mdns.ServiceEntry
		want   Server
		wantOK bool
	}{
		{
			name: "board server",
			entry: &mdns.ServiceEntry{
				Name:       `studio\ mac._boardmesh._tcp.local.`,
				Host:       "studio.local.",
				AddrV4:     net.IPv4(192, 168, 1, 20),
				Port:       8080,
				InfoFields: []string{"BoardMesh"},
			},
			want: Server{
				Instance: "studio mac",
				Host:     "studio.local",
				Addr:     "192.168.1.20",
				Port:     8080,
				Info:     []string{"BoardMesh"},
			},
			wantOK: true,
		},
		{
			name:  "no ipv4",
			entry: &mdns.ServiceEntry{Name: "a._boardmesh._tcp.local.", Port: 8080},
		},
		{
			name:  "no port",
			entry: &mdns.ServiceEntry{Name: "a._boardmesh._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1)},
		},
		{
			name:  "other service",
			entry: &mdns.ServiceEntry{Name: "printer._ipp._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1), Port: 631},
		},
		{name: "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fromEntry(tt.entry, DefaultService)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Instance != tt.want.Instance || got.Host != tt.want.Host || got.Addr != tt.want.Addr || got.Port != tt.want.Port {
				t.Errorf("fromEntry = %+v, want %+v", got, tt.want)
			}
			if got.URL() != "http://192.168.1.20:8080" {
				t.Errorf("URL() = %q", got.URL())
			}
		})
	}
}

func TestSortServers(t *testing.T) {
	got := sortServers(map[string]Server{
		"b": {Instance: "beta", Addr: "10.0.0.2", Port: 8080},
		"a": {Instance: "alpha", Addr: "10.0.0.9", Port: 9000},
		"c": {Instance: "alpha", Addr: "10.0.0.1", Port: 8080},
	})
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Addr != "10.0.0.1" || got[1].Addr != "10.0.0.9" || got[2].Instance != "beta" {
		t.Fatalf("order = %+v", got)
	}
}

func TestAdvertise_RejectsBadPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		if _, err := Advertise(AdvertiseConfig{Instance: "x", Port: port}); err == nil {
			t.Errorf("Advertise(port %d) succeeded", port)
		}
	}
}

func TestAdvertiser_ShutdownNil(t *testing.T) {
	var a *Advertiser
	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown on nil = %v", err)
	}
}
