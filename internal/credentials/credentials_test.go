package credentials

import (
	"context"
	"testing"
)

func TestConfigStoreOrder(t *testing.T) {
	s := NewConfigStore(map[string]string{
		"openai": "sk-1",
		"gemini": "g-1",
		"groq":   "",
		"zeta":   "z",
	}, []string{"gemini", "groq", "openai"})

	creds, err := s.List(context.Background(), "anyone")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range creds {
		names = append(names, c.Provider)
	}
	want := []string{"gemini", "openai", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List() = %v, want %v", names, want)
		}
	}

	cred, _ := s.GetByProvider(context.Background(), "anyone", "groq")
	if cred != nil {
		t.Error("empty key should not produce a credential")
	}
}

func TestConfigStoreUpdate(t *testing.T) {
	s := NewConfigStore(map[string]string{"openai": "a"}, nil)
	s.Update(map[string]string{"groq": "b"}, nil)

	if c, _ := s.GetByProvider(context.Background(), "", "openai"); c != nil {
		t.Error("removed key still served")
	}
	if c, _ := s.GetByProvider(context.Background(), "", "groq"); c == nil || c.Secret != "b" {
		t.Errorf("new key not served: %+v", c)
	}
}

func TestChainFirstMatchWins(t *testing.T) {
	user := NewConfigStore(map[string]string{"groq": "user-groq"}, nil)
	server := NewConfigStore(map[string]string{"groq": "server-groq", "openai": "server-openai"}, []string{"openai", "groq"})
	chain := Chain{user, server}

	c, err := chain.GetByProvider(context.Background(), "u1", "groq")
	if err != nil || c == nil || c.Secret != "user-groq" {
		t.Errorf("expected user key to win, got %+v %v", c, err)
	}

	creds, _ := chain.List(context.Background(), "u1")
	if len(creds) != 2 || creds[0].Provider != "groq" || creds[1].Provider != "openai" {
		t.Errorf("unexpected merged list: %+v", creds)
	}
}

func TestHint(t *testing.T) {
	if got := (Credential{Secret: "sk-abcdefghijkl"}).Hint(); got != "sk-...ijkl" {
		t.Errorf("Hint() = %q", got)
	}
	if got := (Credential{Secret: "short"}).Hint(); got != "*****" {
		t.Errorf("Hint() = %q", got)
	}
}
