package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/lguibr/keanu/actor"
	"github.com/lguibr/keanu/eventbus"
	"github.com/lguibr/keanu/internal/log"
	"github.com/lguibr/keanu/pool"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a short demonstration wiring the pool, event bus, and actor system together",
	RunE:  runDemo,
}

// rateToken is a non-database resource pooled the same way a *sql.Conn is,
// to show the pool is generic rather than database-specific.
type rateToken struct {
	id int
}

func runDemo(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("demo")

	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	connPool := pool.New(3,
		func() (*sql.Conn, error) { return db.Conn(context.Background()) },
		pool.WithRelease[*sql.Conn](func(c *sql.Conn) { _ = c.Close() }),
		pool.WithTest[*sql.Conn](func(c *sql.Conn) bool {
			return c.PingContext(context.Background()) == nil
		}),
	)
	defer connPool.Shutdown()

	var nextTokenID int
	tokenPool := pool.New(2, func() (*rateToken, error) {
		nextTokenID++
		return &rateToken{id: nextTokenID}, nil
	})
	defer tokenPool.Shutdown()

	if _, err := pool.Use(connPool, func(c *sql.Conn) (struct{}, error) {
		_, err := c.ExecContext(context.Background(), "CREATE TABLE IF NOT EXISTS events(topic TEXT, payload TEXT)")
		return struct{}{}, err
	}); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	sys := actor.NewSystem(actor.WithLifecycleObserver(func(ev actor.LifecycleEvent) {
		logger.Info().Str("actor", ev.Ref.String()).Str("kind", string(ev.Kind)).Msg("actor lifecycle event")
	}))
	defer sys.ShutdownAwait(5 * time.Second)

	if err := actor.RegisterProp(sys, func() *recorderActor {
		return &recorderActor{pool: connPool}
	}); err != nil {
		return fmt.Errorf("register prop: %w", err)
	}

	bus := eventbus.NewEventBus[string]()
	defer bus.Shutdown()

	bus.Subscribe(eventbus.SubscriberFunc[string](func(msg eventbus.EventBusMessage[string]) {
		if err := actor.Tell[*recorderActor](sys, "recorder", msg); err != nil {
			logger.Warn().Err(err).Msg("tell failed")
		}
	}))

	_, err = pool.Use(tokenPool, func(tok *rateToken) (struct{}, error) {
		logger.Info().Int("token", tok.id).Msg("borrowed rate token")
		bus.PublishTopic("greeting", fmt.Sprintf("hello from token %d", tok.id))
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	bus.PublishTopic("greeting", "a second event")

	time.Sleep(100 * time.Millisecond)
	return nil
}

// recorderActor persists every event-bus message it's told about into the
// events table, using the shared connection pool.
type recorderActor struct {
	pool *pool.Pool[*sql.Conn]
}

func (a *recorderActor) Receive(ctx actor.Context) error {
	msg, ok := ctx.Message().(eventbus.EventBusMessage[string])
	if !ok {
		return actor.ErrUnhandled
	}
	_, err := pool.Use(a.pool, func(c *sql.Conn) (struct{}, error) {
		_, execErr := c.ExecContext(context.Background(),
			"INSERT INTO events(topic, payload) VALUES (?, ?)", msg.Topic, msg.Payload)
		return struct{}{}, execErr
	})
	return err
}
