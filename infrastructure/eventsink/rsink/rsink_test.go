package rsink

import "testing"

func TestChannel_DefaultsPrefixWhenUnset(t *testing.T) {
	s := New(Config{Addr: "localhost:6379"})
	defer s.Close()
	if got := s.channel("tenant-1"); got != "barterloop:events:tenant-1" {
		t.Fatalf("unexpected channel name: %s", got)
	}
}

func TestChannel_HonorsCustomPrefix(t *testing.T) {
	s := New(Config{Addr: "localhost:6379", ChannelPrefix: "myapp"})
	defer s.Close()
	if got := s.channel("tenant-1"); got != "myapp:tenant-1" {
		t.Fatalf("unexpected channel name: %s", got)
	}
}
