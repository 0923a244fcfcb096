package console

import "testing"

func TestPipeFIFO(t *testing.T) {
	p := NewPipe()
	if _, ok := p.Poll(); ok {
		t.Fatal("empty pipe returned a byte")
	}
	p.Feed([]byte("ab"))
	p.FeedLine("c")
	want := []byte{'a', 'b', 'c', '\n'}
	for i, w := range want {
		b, ok := p.Poll()
		if !ok || b != w {
			t.Fatalf("byte %d: got %q %v, want %q", i, b, ok, w)
		}
	}
	if _, ok := p.Poll(); ok {
		t.Fatal("drained pipe returned a byte")
	}
}

func TestPipeOutputAndDrain(t *testing.T) {
	p := NewPipe()
	p.Write([]byte("hello "))
	p.Write([]byte("world"))
	if got := p.Output(); got != "hello world" {
		t.Fatalf("output %q", got)
	}
	if got := p.Drain(); got != "hello world" {
		t.Fatalf("drain %q", got)
	}
	if got := p.Output(); got != "" {
		t.Fatalf("output after drain %q", got)
	}
}
