// Command dbclean deletes every task and then every user through the API.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	host := flag.String("url", "localhost", "API host")
	port := flag.String("port", "3000", "API port")
	flag.Parse()

	c := &client{
		base: fmt.Sprintf("http://%s:%s/api", *host, *port),
		http: &http.Client{Timeout: 10 * time.Second},
		out:  os.Stdout,
	}

	fmt.Fprintf(c.out, "Cleaning %s\n\n", c.base)

	tasks := c.purge("tasks")
	users := c.purge("users")

	fmt.Fprintln(c.out, "Summary:")
	fmt.Fprintf(c.out, "  tasks deleted: %d\n", tasks)
	fmt.Fprintf(c.out, "  users deleted: %d\n", users)
}
