package cmd

import (
	"errors"
	"fmt"
	"os"

	"Melodix/core/library"
	"Melodix/storage"

	"github.com/spf13/cobra"
)

var (
	minioPut    string
	minioGet    string
	minioObject string
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "在 MinIO 中上传或下载曲库文件",
	Long:  `上传本地曲库 JSON 到 MinIO，或从 MinIO 下载曲库。上传前会校验文件能否被解析。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (minioPut == "") == (minioGet == "") {
			return errors.New("exactly one of --put or --get is required")
		}

		object := minioObject
		if object == "" {
			object = cfg.LibraryObject
		}

		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if minioPut != "" {
			data, err := os.ReadFile(minioPut)
			if err != nil {
				return err
			}
			lib, err := library.Decode(data)
			if err != nil {
				return fmt.Errorf("refusing to upload %s: %w", minioPut, err)
			}
			if err := client.EnsureBucket(ctx); err != nil {
				return err
			}
			if err := client.PutBytes(ctx, object, data, "application/json"); err != nil {
				return err
			}
			artists, albums, songs := lib.Counts()
			fmt.Fprintf(out, "已上传 %s -> %s/%s (%d artists, %d albums, %d songs)\n",
				minioPut, client.Bucket(), object, artists, albums, songs)
			return nil
		}

		data, err := client.GetObjectBytes(ctx, object)
		if err != nil {
			if storage.IsNotFound(err) {
				return fmt.Errorf("%s/%s does not exist", client.Bucket(), object)
			}
			return err
		}
		if err := os.WriteFile(minioGet, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "已下载 %s/%s -> %s (%d bytes)\n", client.Bucket(), object, minioGet, len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVar(&minioPut, "put", "", "上传的本地曲库文件")
	minioCmd.Flags().StringVar(&minioGet, "get", "", "下载到的本地文件")
	minioCmd.Flags().StringVarP(&minioObject, "object", "o", "", "对象名，默认使用 LIBRARY_OBJECT")

	minioCmd.Example = `  # 上传曲库
  melodix minio --put Config/music.json

  # 下载曲库
  melodix minio --get /tmp/music.json`
}
