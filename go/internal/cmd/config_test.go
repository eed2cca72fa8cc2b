package main

import "testing"

func TestEventsURLDerivedFromBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "http backend",
			cfg:  Config{BackendURL: "http://localhost:4000"},
			want: "ws://localhost:4000/events",
		},
		{
			name: "https backend",
			cfg:  Config{BackendURL: "https://game.example.com"},
			want: "wss://game.example.com/events",
		},
		{
			name: "trailing slash trimmed",
			cfg:  Config{BackendURL: "http://localhost:4000/"},
			want: "ws://localhost:4000/events",
		},
		{
			name: "explicit events url wins",
			cfg: Config{
				BackendURL: "http://localhost:4000",
				EventsURL:  "wss://events.example.com/stream",
			},
			want: "wss://events.example.com/stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.eventsURL(); got != tt.want {
				t.Errorf("eventsURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
