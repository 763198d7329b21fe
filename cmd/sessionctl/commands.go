package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/sessiongate/client"
	"github.com/urfave/cli/v2"
)

func issueCommand() *cli.Command {
	return &cli.Command{
		Name:  "issue",
		Usage: "mint a session token and print it",
		Action: func(c *cli.Context) error {
			cfg, err := loadCtlConfig(c)
			if err != nil {
				return err
			}
			issuer := client.NewHTTPIssuer(cfg.Server.URL, &http.Client{Timeout: cfg.Server.Timeout})
			tok, err := issuer.Issue(c.Context)
			if err != nil {
				var ie *client.IssueError
				if errors.As(err, &ie) && ie.RateLimited() {
					return fmt.Errorf("issuance rate limited, retry in %s", ie.RetryAfter)
				}
				return err
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(tok)
		},
	}
}

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "send one request to a protected path",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "method", Aliases: []string{"X"}, Value: http.MethodGet},
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "request body"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("call: path argument required")
			}
			cfg, err := loadCtlConfig(c)
			if err != nil {
				return err
			}
			cl, err := newClient(c, cfg)
			if err != nil {
				return err
			}

			var body io.Reader
			if d := c.String("data"); d != "" {
				body = strings.NewReader(d)
			}
			req, err := http.NewRequestWithContext(c.Context, strings.ToUpper(c.String("method")), strings.TrimRight(cfg.Server.URL, "/")+path, body)
			if err != nil {
				return err
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := cl.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			fmt.Fprintf(c.App.Writer, "%s\n", resp.Status)
			_, err = io.Copy(c.App.Writer, resp.Body)
			return err
		},
	}
}

type burstResult struct {
	statuses map[int]int
	failures int
	elapsed  time.Duration
}

func burstCommand() *cli.Command {
	return &cli.Command{
		Name:      "burst",
		Usage:     "send N concurrent requests through one client",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: 10, Usage: "number of requests"},
			&cli.IntFlag{Name: "concurrency", Value: 0, Usage: "worker count, 0 means one per request"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("burst: path argument required")
			}
			n := c.Int("n")
			if n <= 0 {
				return errors.New("burst: -n must be > 0")
			}
			cfg, err := loadCtlConfig(c)
			if err != nil {
				return err
			}
			cl, err := newClient(c, cfg)
			if err != nil {
				return err
			}

			res := runBurst(c.Context, cl, path, n, c.Int("concurrency"))

			codes := make([]int, 0, len(res.statuses))
			for code := range res.statuses {
				codes = append(codes, code)
			}
			sort.Ints(codes)
			for _, code := range codes {
				fmt.Fprintf(c.App.Writer, "%d %s: %d\n", code, http.StatusText(code), res.statuses[code])
			}
			fmt.Fprintf(c.App.Writer, "errors: %d\nissuances: %d\nelapsed: %s\n",
				res.failures, cl.Cache().Refreshes(), res.elapsed.Round(time.Millisecond))
			return nil
		},
	}
}

func runBurst(ctx context.Context, cl *client.Client, path string, n, workers int) burstResult {
	if workers <= 0 || workers > n {
		workers = n
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res = burstResult{statuses: map[int]int{}}
	)
	jobs := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				resp, err := cl.Get(ctx, path)
				mu.Lock()
				if err != nil {
					res.failures++
				} else {
					res.statuses[resp.StatusCode]++
				}
				mu.Unlock()
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()
	res.elapsed = time.Since(start)
	return res
}
