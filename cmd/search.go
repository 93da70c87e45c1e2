package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"Melodix/config"
	"Melodix/core/library"
	"Melodix/core/search"
	"Melodix/model"
	"Melodix/storage"

	"github.com/spf13/cobra"
)

var (
	searchQuery   string
	searchLimit   int
	searchSuggest bool
	searchFields  []string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "在本地曲库中搜索",
	Long:  `加载曲库并在进程内构建索引，然后执行一次搜索或自动补全，不需要启动服务器。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := searchQuery
		if query == "" {
			query = strings.Join(args, " ")
		}
		if strings.TrimSpace(query) == "" {
			return errors.New("query is required (-q)")
		}

		var reader library.ObjectReader
		if cfg.LibrarySource == config.LibrarySourceMinio {
			mc, err := storage.NewMinioClient(cfg)
			if err != nil {
				return err
			}
			reader = mc
		}
		src, err := library.NewSource(cfg, reader)
		if err != nil {
			return err
		}

		index := search.BuildFromSource(cmd.Context(), src)
		if index == nil {
			return fmt.Errorf("search unavailable: no library at %s", src.Describe())
		}

		opts := search.SearchOptions{Fields: searchFields, Limit: searchLimit}
		out := cmd.OutOrStdout()

		if searchSuggest {
			suggestions := index.AutoSuggest(query, opts)
			if searchJSON {
				return json.NewEncoder(out).Encode(suggestions)
			}
			for _, s := range suggestions {
				fmt.Fprintf(out, "%.3f\t%s\n", s.Score, s.Suggestion)
			}
			return nil
		}

		results := index.Search(query, opts)
		if searchJSON {
			return json.NewEncoder(out).Encode(results)
		}
		for _, r := range results {
			fmt.Fprintf(out, "%.3f\t%-6s\t%s\t%s\n", r.Score, r.Type, r.Name, describe(r))
		}
		return nil
	},
}

func describe(r search.Result) string {
	var parts []string
	if r.Type != model.RecordArtist && r.Artist != nil {
		parts = append(parts, r.Artist.Name)
	}
	if r.Type == model.RecordSong && r.Album != nil {
		parts = append(parts, r.Album.Name)
	}
	return strings.Join(parts, " / ")
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "搜索内容")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "最多返回的结果数")
	searchCmd.Flags().BoolVar(&searchSuggest, "suggest", false, "输出自动补全候选而不是搜索结果")
	searchCmd.Flags().StringSliceVarP(&searchFields, "fields", "f", nil, "只在指定字段中搜索 (type,name,id,generatedID)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "以 JSON 输出")

	searchCmd.Example = `  # 搜索歌曲
  melodix search -q "Test Song"

  # 只在名称中查找拼写建议
  melodix search -q "Tast Album" --suggest -f name`
}

