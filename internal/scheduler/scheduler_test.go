// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
)

func noop(context.Context) error { return nil }

func TestAdd(t *testing.T) {
	s := New(nil)

	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{name: "valid", job: Job{Name: "a", Schedule: "@every 1m", Run: noop}},
		{name: "five fields", job: Job{Name: "b", Schedule: "*/5 * * * *", Run: noop}},
		{name: "duplicate", job: Job{Name: "a", Schedule: "@hourly", Run: noop}, wantErr: true},
		{name: "bad schedule", job: Job{Name: "c", Schedule: "every minute", Run: noop}, wantErr: true},
		{name: "no name", job: Job{Schedule: "@hourly", Run: noop}, wantErr: true},
		{name: "no run", job: Job{Name: "d", Schedule: "@hourly"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Add(tt.job)
			if (err != nil) != tt.wantErr {
				t.Errorf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	jobs := s.List()
	if len(jobs) != 2 || jobs[0].Name != "a" || jobs[1].Name != "b" {
		t.Errorf("List() = %+v", jobs)
	}
}

func TestTrigger(t *testing.T) {
	s := New(nil)

	runs := 0
	fail := errors.New("boom")
	if err := s.Add(Job{Name: "flaky", Schedule: "@daily", Run: func(ctx context.Context) error {
		runs++
		if runs == 1 {
			return fail
		}
		return nil
	}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Trigger(context.Background(), "flaky"); !errors.Is(err, fail) {
		t.Fatalf("first Trigger() = %v, want %v", err, fail)
	}
	if got := s.List()[0].LastError; got != "boom" {
		t.Errorf("LastError = %q", got)
	}

	if err := s.Trigger(context.Background(), "flaky"); err != nil {
		t.Fatalf("second Trigger() = %v", err)
	}
	if got := s.List()[0].LastError; got != "" {
		t.Errorf("LastError after success = %q", got)
	}

	if err := s.Trigger(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Trigger(missing) = %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	if err := s.Add(Job{Name: "tick", Schedule: "@every 1h", Run: noop}); err != nil {
		t.Fatal(err)
	}

	s.Start()
	if next := s.List()[0].NextRun; next.IsZero() {
		t.Error("NextRun not set after Start")
	}
	s.Stop()
}
