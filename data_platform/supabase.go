package dataplatform

import (
	"errors"
	"log/slog"
	"time"

	supa "github.com/nedpals/supabase-go"
)

const (
	supabaseUploadTimeout = time.Second * 10
)

// supabaseClient wraps the open source supabase library with reconnection and timeout logic.
type supabaseClient struct {
	url    string
	key    string
	schema string

	subClient       *supa.Client // the raw client of the underlying supabase library we are using
	shouldReconnect bool         // when true, the subClient is 'dirty' and will be re-created before the next insert
	timeout         time.Duration
	logger          *slog.Logger
}

func newSupabaseClient(url, key, schema string) *supabaseClient {
	return &supabaseClient{
		url:             url,
		key:             key,
		schema:          schema,
		shouldReconnect: true, // the connection is made lazily on the first insert
		timeout:         supabaseUploadTimeout,
		logger:          slog.Default().With("host", url),
	}
}

// Insert uploads rows into the given supabase table.
func (c *supabaseClient) Insert(table string, rows interface{}) error {

	c.reconnectIfNeccesary()

	// The supabase client library doesn't have good timeout support, so here we wrap the call in a timeout
	errCh := make(chan error, 1)
	subClient := c.subClient
	go func() {
		errCh <- subClient.DB.From(table).Insert(rows).Execute(nil)
	}()

	select {
	case <-time.After(c.timeout):
		c.shouldReconnect = true
		return errors.New("timed out")
	case err := <-errCh:
		if err != nil {
			c.shouldReconnect = true
		}
		return err
	}
}

// reconnectIfNeccesary re-creates the underlying client after a failed or timed out request.
func (c *supabaseClient) reconnectIfNeccesary() {
	if !c.shouldReconnect {
		return
	}

	subClient := supa.CreateClient(c.url, c.key)

	// The supabase client library doesn't have a fully featured interface, here we specify the schema directly by
	// adding headers to the postgrest requests.
	subClient.DB.AddHeader("Accept-Profile", c.schema)
	subClient.DB.AddHeader("Content-Profile", c.schema)

	c.subClient = subClient
	c.shouldReconnect = false

	c.logger.Info("Created supabase client")
}
