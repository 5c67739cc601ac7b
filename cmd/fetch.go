package main

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vianu/fraudcrawler/pkg/zyte"
)

var (
	fetchFile string
	fetchMode string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url ...]",
	Short: "Extract product data for an explicit list of URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Zyte.Key == "" {
			return eris.New("config: zyte key is not set")
		}

		urls := args
		if fetchFile != "" {
			fromFile, err := readURLs(fetchFile)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			return eris.New("no urls given")
		}

		client := newZyteClient()

		var records []zyte.Record
		switch fetchMode {
		case "sequential":
			records = client.FetchAll(ctx, urls)
		case "stream":
			in := make(chan string, len(urls))
			for _, u := range urls {
				in <- u
			}
			close(in)

			out := make(chan zyte.Result)
			fetchErr := make(chan error, 1)
			go func() {
				fetchErr <- client.Fetch(ctx, in, out)
			}()
			for res := range out {
				if res.Record == nil {
					zap.L().Warn("no record for url", zap.String("url", res.URL))
					continue
				}
				records = append(records, res.Record)
			}
			if err := <-fetchErr; err != nil {
				return err
			}
		default:
			return eris.Errorf("unknown mode: %s", fetchMode)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "    ")
		return enc.Encode(records)
	},
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open urls file")
	}
	defer f.Close() //nolint:errcheck

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line != "" {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read urls file")
	}
	return urls, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFile, "file", "", "file with one url per line")
	fetchCmd.Flags().StringVar(&fetchMode, "mode", "sequential", "fetch mode: sequential or stream")
	rootCmd.AddCommand(fetchCmd)
}
