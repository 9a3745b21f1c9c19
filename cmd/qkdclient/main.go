package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ruteri/qkd-transfer-backend/api/qkdhandler"
	"github.com/ruteri/qkd-transfer-backend/api/transferhandler"
	"github.com/ruteri/qkd-transfer-backend/cmd/flags"
	"github.com/ruteri/qkd-transfer-backend/cryptoutils"
	"github.com/urfave/cli/v2"
)

var flagServer *cli.StringFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "QKD transfer server address",
	EnvVars: []string{"QKD_SERVER"},
}

var flagBits *cli.IntFlag = &cli.IntFlag{
	Name:  "bits",
	Usage: "key size in bits; 0 uses the server default",
}

var flagID *cli.StringFlag = &cli.StringFlag{
	Name:     "id",
	Required: true,
	Usage:    "transfer id",
}

var flagFile *cli.StringFlag = &cli.StringFlag{
	Name:     "file",
	Required: true,
	Usage:    "path of the file to send or decrypt",
}

var flagKeyHex *cli.StringFlag = &cli.StringFlag{
	Name:  "key-hex",
	Usage: "hex AES key; send fetches a fresh QKD key when empty",
}

var flagIVBase64 *cli.StringFlag = &cli.StringFlag{
	Name:  "iv-b64",
	Usage: "base64 IV",
}

var flagOut *cli.StringFlag = &cli.StringFlag{
	Name:  "out",
	Usage: "output path; defaults to the file name sent by the server",
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func writeDownload(d *transferhandler.Download, out string) error {
	if out == "" {
		out = filepath.Base(d.Filename)
	}
	if out == "" || out == "." {
		return fmt.Errorf("server sent no file name, use --%s", flagOut.Name)
	}
	if err := os.WriteFile(out, d.Data, 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", len(d.Data), out)
	return nil
}

func main() {
	if err := flags.LoadEnvFile(os.Args); err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:           "qkdclient",
		Usage:          "Exchange files through a QKD transfer server",
		DefaultCommand: "key",
		Flags: []cli.Flag{
			flagServer,
			flags.EnvFileFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "key",
				Usage: "generate a shared key",
				Flags: []cli.Flag{flagBits},
				Action: func(cCtx *cli.Context) error {
					key, err := qkdhandler.NewClient(cCtx.String(flagServer.Name)).Key(cCtx.Int(flagBits.Name))
					if err != nil {
						return err
					}
					return printJSON(key)
				},
			},
			{
				Name:  "send",
				Usage: "encrypt a local file and upload it",
				Flags: []cli.Flag{flagFile, flagKeyHex, flagBits},
				Action: func(cCtx *cli.Context) error {
					server := cCtx.String(flagServer.Name)
					path := cCtx.String(flagFile.Name)

					plaintext, err := os.ReadFile(path)
					if err != nil {
						return err
					}

					keyHex := cCtx.String(flagKeyHex.Name)
					if keyHex == "" {
						keyResp, err := qkdhandler.NewClient(server).Key(cCtx.Int(flagBits.Name))
						if err != nil {
							return fmt.Errorf("could not obtain key: %w", err)
						}
						keyHex = keyResp.KeyHex
					}

					key, err := cryptoutils.DecodeKeyHex(keyHex)
					if err != nil {
						return err
					}
					iv, err := cryptoutils.GenerateIV()
					if err != nil {
						return err
					}
					ciphertext, err := cryptoutils.Encrypt(plaintext, key, iv)
					if err != nil {
						return err
					}

					resp, err := transferhandler.NewClient(server).Upload(
						filepath.Base(path)+".enc", ciphertext, keyHex, cryptoutils.EncodeIVBase64(iv))
					if err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			{
				Name:  "info",
				Usage: "look up a transfer",
				Flags: []cli.Flag{flagID},
				Action: func(cCtx *cli.Context) error {
					info, err := transferhandler.NewClient(cCtx.String(flagServer.Name)).Transfer(cCtx.String(flagID.Name))
					if err != nil {
						return err
					}
					return printJSON(info)
				},
			},
			{
				Name:  "fetch",
				Usage: "download a transfer's ciphertext, or its plaintext with --plaintext",
				Flags: []cli.Flag{
					flagID,
					flagOut,
					&cli.BoolFlag{Name: "plaintext", Usage: "let the server decrypt the transfer"},
				},
				Action: func(cCtx *cli.Context) error {
					client := transferhandler.NewClient(cCtx.String(flagServer.Name))
					id := cCtx.String(flagID.Name)

					var (
						d   *transferhandler.Download
						err error
					)
					if cCtx.Bool("plaintext") {
						d, err = client.Plaintext(id)
					} else {
						d, err = client.Ciphertext(id)
					}
					if err != nil {
						return err
					}
					if d.Digest != "" && cryptoutils.CiphertextDigest(d.Data) != d.Digest {
						return fmt.Errorf("ciphertext digest mismatch: server sent %s", d.Digest)
					}
					return writeDownload(d, cCtx.String(flagOut.Name))
				},
			},
			{
				Name:  "decrypt",
				Usage: "decrypt a local ciphertext on the server without storing it",
				Flags: []cli.Flag{
					flagFile,
					flagOut,
					&cli.StringFlag{Name: flagKeyHex.Name, Required: true, Usage: flagKeyHex.Usage},
					&cli.StringFlag{Name: flagIVBase64.Name, Required: true, Usage: flagIVBase64.Usage},
					&cli.StringFlag{Name: "original-name", Usage: "name for the decrypted file"},
				},
				Action: func(cCtx *cli.Context) error {
					path := cCtx.String(flagFile.Name)
					ciphertext, err := os.ReadFile(path)
					if err != nil {
						return err
					}

					d, err := transferhandler.NewClient(cCtx.String(flagServer.Name)).Decrypt(
						filepath.Base(path), ciphertext,
						cCtx.String(flagKeyHex.Name), cCtx.String(flagIVBase64.Name),
						cCtx.String("original-name"))
					if err != nil {
						return err
					}
					return writeDownload(d, cCtx.String(flagOut.Name))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
