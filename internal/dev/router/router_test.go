package router

import (
	"context"
	"errors"
	"net"
	"testing"
)

type fakeProcess struct {
	killed bool
	alive  bool
}

func (p *fakeProcess) Kill() error {
	p.killed = true
	p.alive = false
	return nil
}

func (p *fakeProcess) Alive() bool { return p.alive }

type fakeBinary struct {
	startErr error
	started  int
	procs    []*fakeProcess
}

func (b *fakeBinary) Start(_ context.Context, _, _, _ string) (Process, error) {
	b.started++
	if b.startErr != nil {
		return nil, b.startErr
	}
	p := &fakeProcess{alive: true}
	b.procs = append(b.procs, p)
	return p, nil
}

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("failed to close probe listener: %v", err)
	}
	return addr
}

func TestSupervisorSpawnIsIdempotentRestart(t *testing.T) {
	bin := &fakeBinary{}
	s := NewSupervisor(bin, "schema.graphql", "", freeTCPAddr(t), nil)
	s.MarkInstalled()

	if err := s.Spawn(context.Background()); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	if s.State() != Running {
		t.Fatalf("expected Running, got %v", s.State())
	}
	first := bin.procs[0]

	if err := s.Spawn(context.Background()); err != nil {
		t.Fatalf("second spawn (restart): %v", err)
	}
	if !first.killed {
		t.Fatal("expected the first process to be killed on restart")
	}
	if bin.started != 2 {
		t.Fatalf("expected 2 starts, got %d", bin.started)
	}
}

func TestSupervisorSpawnFailureDropsToInstalled(t *testing.T) {
	bin := &fakeBinary{startErr: errors.New("boom")}
	s := NewSupervisor(bin, "schema.graphql", "", freeTCPAddr(t), nil)
	s.MarkInstalled()

	if err := s.Spawn(context.Background()); err == nil {
		t.Fatal("expected spawn failure")
	}
	if s.State() != Installed {
		t.Fatalf("expected Installed after failed spawn, got %v", s.State())
	}
}

func TestSupervisorKillIsBestEffortAndIdempotent(t *testing.T) {
	bin := &fakeBinary{}
	s := NewSupervisor(bin, "schema.graphql", "", freeTCPAddr(t), nil)
	s.MarkInstalled()
	_ = s.Spawn(context.Background())

	if err := s.Kill(); err != nil {
		t.Fatalf("kill should never fail the caller: %v", err)
	}
	if s.State() != Installed {
		t.Fatalf("expected Installed after kill, got %v", s.State())
	}
	if err := s.Kill(); err != nil {
		t.Fatalf("second kill should be a no-op, got: %v", err)
	}
}

func TestPreflightBindRejectsAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	bin := &fakeBinary{}
	s := NewSupervisor(bin, "schema.graphql", "", ln.Addr().String(), nil)
	if err := s.PreflightBind(); err == nil {
		t.Fatal("expected preflight bind to fail against an address already in use")
	}
}
