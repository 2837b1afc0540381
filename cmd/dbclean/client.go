package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type client struct {
	base string
	http *http.Client
	out  io.Writer
}

type document struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// purge deletes documents of resource page by page until a listing comes back
// empty or a page deletes nothing.
func (c *client) purge(resource string) int {
	deleted := 0
	for {
		docs, err := c.list(resource)
		if err != nil {
			fmt.Fprintf(c.out, "failed to list %s: %v\n", resource, err)
			return deleted
		}
		if len(docs) == 0 {
			return deleted
		}

		round := 0
		for _, doc := range docs {
			if err := c.delete(resource, doc.ID); err != nil {
				fmt.Fprintf(c.out, "failed to delete %s %s: %v\n", resource, doc.ID, err)
				continue
			}
			round++
			fmt.Fprintf(c.out, "deleted %s %s (%s)\n", resource, doc.ID, doc.Name)
		}
		deleted += round
		if round == 0 {
			return deleted
		}
	}
}

func (c *client) list(resource string) ([]document, error) {
	q := url.Values{"select": {`{"name":1}`}}
	resp, err := c.http.Get(c.base + "/" + resource + "?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env struct {
		Data []document `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *client) delete(resource, id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.base+"/"+resource+"/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
