package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/amaroom/internal/api"
)

func oneShotClient(opts Options) (*api.Client, error) {
	cfg, err := Setup(opts)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg)
}

// ListQuestions prints the current questions of a room once.
func ListQuestions(ctx context.Context, opts Options, roomID string, w io.Writer) error {
	client, err := oneShotClient(opts)
	if err != nil {
		return err
	}
	qs, err := client.FetchQuestions(ctx, roomID)
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}
	fmt.Fprintf(w, "%s %s\n", humanize.Comma(int64(len(qs))), pluralize(len(qs), "question", "questions"))
	for _, q := range qs {
		fmt.Fprintln(w, formatQuestion(q))
	}
	return nil
}

// CreateRoom creates a room and prints its id.
func CreateRoom(ctx context.Context, opts Options, name string, w io.Writer) error {
	client, err := oneShotClient(opts)
	if err != nil {
		return err
	}
	room, err := client.CreateRoom(ctx, name)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	fmt.Fprintf(w, "%s\t%s\n", room.ID, room.Name)
	return nil
}

// ShowRoom prints a room's name and question count.
func ShowRoom(ctx context.Context, opts Options, roomID string, w io.Writer) error {
	client, err := oneShotClient(opts)
	if err != nil {
		return err
	}
	room, err := client.FetchRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("fetch room: %w", err)
	}
	fmt.Fprintf(w, "id:        %s\n", room.ID)
	fmt.Fprintf(w, "name:      %s\n", room.Name)
	fmt.Fprintf(w, "questions: %s\n", humanize.Comma(int64(room.QuestionsCount)))
	return nil
}

// Ask posts a question to a room.
func Ask(ctx context.Context, opts Options, roomID string, words []string, w io.Writer) error {
	client, err := oneShotClient(opts)
	if err != nil {
		return err
	}
	q, err := client.CreateQuestion(ctx, roomID, strings.Join(words, " "))
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	fmt.Fprintln(w, formatQuestion(*q))
	return nil
}

// React upvotes a question.
func React(ctx context.Context, opts Options, questionID string, w io.Writer) error {
	client, err := oneShotClient(opts)
	if err != nil {
		return err
	}
	q, err := client.ReactQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("react: %w", err)
	}
	fmt.Fprintln(w, formatQuestion(*q))
	return nil
}
