package ws

import (
	"encoding/json"
	"testing"
)

func newTestClient(hub *Hub, runID string) *Client {
	return &Client{
		Send:  make(chan []byte, 8),
		RunID: runID,
		Hub:   hub,
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "run-1")

	hub.RegisterClient(client)

	if got := hub.GetConnectionCount(); got != 1 {
		t.Errorf("conexões = %d, esperava 1", got)
	}
	if got := hub.GetRunFollowerCount("run-1"); got != 1 {
		t.Errorf("seguidores = %d, esperava 1", got)
	}

	// Mensagem de boas-vindas na conexão
	select {
	case raw := <-client.Send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("welcome inválida: %v", err)
		}
		if msg.Type != "connection" {
			t.Errorf("tipo = %q, esperava connection", msg.Type)
		}
	default:
		t.Fatal("welcome não enviada")
	}

	hub.UnregisterClient(client)

	if got := hub.GetConnectionCount(); got != 0 {
		t.Errorf("conexões após unregister = %d, esperava 0", got)
	}
}

func TestHubSendProgressReachesFollowers(t *testing.T) {
	hub := NewHub()
	follower := newTestClient(hub, "run-1")
	other := newTestClient(hub, "run-2")
	hub.RegisterClient(follower)
	hub.RegisterClient(other)

	// Drena as mensagens de boas-vindas
	<-follower.Send
	<-other.Send

	hub.SendProgress(RunProgress{RunID: "run-1", Stage: "generating", Attempt: 1, Total: 3})

	select {
	case raw := <-follower.Send:
		var progress RunProgress
		if err := json.Unmarshal(raw, &progress); err != nil {
			t.Fatalf("progresso inválido: %v", err)
		}
		if progress.Type != "progress" || progress.Stage != "generating" {
			t.Errorf("progresso inesperado: %+v", progress)
		}
		if progress.RunID != "run-1" {
			t.Errorf("run_id = %q", progress.RunID)
		}
	default:
		t.Fatal("seguidor não recebeu o progresso")
	}

	select {
	case raw := <-other.Send:
		t.Errorf("cliente de outro run recebeu mensagem: %s", raw)
	default:
	}
}

func TestHubSendToUnknownRunIsNoop(t *testing.T) {
	hub := NewHub()
	// Não deve entrar em pânico nem bloquear
	hub.SendProgress(RunProgress{RunID: "fantasma", Stage: "x"})
}
