package commands

import (
	"context"
	"errors"
	"testing"
)

func TestSagaRunsStepsInOrder(t *testing.T) {
	var order []string
	var sg saga
	sg.add("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	}, nil)
	sg.add("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	}, nil)

	if err := sg.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestSagaCompensatesInReverse(t *testing.T) {
	boom := errors.New("boom")
	var compensated []string
	var sg saga
	sg.add("first", func(context.Context) error { return nil },
		func(context.Context) error {
			compensated = append(compensated, "first")
			return nil
		})
	sg.add("second", func(context.Context) error { return nil },
		func(context.Context) error {
			compensated = append(compensated, "second")
			return nil
		})
	sg.add("third", func(context.Context) error { return boom }, nil)

	err := sg.run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(compensated) != 2 || compensated[0] != "second" || compensated[1] != "first" {
		t.Fatalf("expected reverse compensation, got %v", compensated)
	}
}

func TestSagaSkipsNilCompensations(t *testing.T) {
	boom := errors.New("boom")
	var sg saga
	sg.add("first", func(context.Context) error { return nil }, nil)
	sg.add("second", func(context.Context) error { return boom }, nil)

	if err := sg.run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestSagaFailedCompensationDoesNotMaskError(t *testing.T) {
	boom := errors.New("boom")
	var sg saga
	sg.add("first", func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("compensation failed") })
	sg.add("second", func(context.Context) error { return boom }, nil)

	if err := sg.run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected the original failure, got %v", err)
	}
}
