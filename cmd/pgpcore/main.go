// This is free and unencumbered software released into the public domain.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
	"nullprogram.com/x/optparse"

	"github.com/openpgp-core/pgpcore/key"
	"github.com/openpgp-core/pgpcore/pgp"
	"github.com/openpgp-core/pgpcore/primitive"
	"github.com/openpgp-core/pgpcore/provider"
)

// stretchPassphrase runs a raw passphrase through Argon2id before it
// reaches the library's own RFC 4880 S2K, the same extra hardening the
// teacher's keygen path applied ahead of its KDF. This only affects
// --kdf=argon2 on symmetric encrypt/decrypt; it does not change the
// wire-level S2K parameters spec.md's determinism cases rely on, since
// it runs entirely on the client side of the passphrase boundary.
func stretchPassphrase(passphrase []byte) []byte {
	const (
		kdfTime   = 8
		kdfMemory = 1024 * 1024
	)
	return argon2.IDKey(passphrase, []byte("pgpcore-argon2-salt"), kdfTime, kdfMemory, 1, 32)
}

const (
	cmdEncrypt = iota
	cmdDecrypt
	cmdSign
	cmdVerify
)

// fatal prints the message like fmt.Printf() and then os.Exit(1).
func fatal(format string, args ...interface{}) {
	buf := bytes.NewBufferString("pgpcore: ")
	fmt.Fprintf(buf, format, args...)
	buf.WriteRune('\n')
	os.Stderr.Write(buf.Bytes())
	os.Exit(1)
}

type config struct {
	cmd  int
	args []string

	armor    bool
	keyring  string
	recipient string
	signer   string
	passfile string
	output   string
	kdf      string
	detached string
	cleartext bool
	help     bool
	verbose  bool
}

func usage(w io.Writer) {
	bw := bufio.NewWriter(w)
	i := "  "
	p := "pgpcore"
	f := func(s ...interface{}) {
		fmt.Fprintln(bw, s...)
	}
	f("Usage:")
	f(i, p, "-E -k ring.pgp -r keyid [-a] [-o out] [files...]")
	f(i, p, "-D -k ring.pgp [-i pwfile] [files...]")
	f(i, p, "-S -k ring.pgp -s keyid [-a] [-o out] [files...]")
	f(i, p, "-V -k ring.pgp [--detached sig] [files...]")
	f("Commands:")
	f(i, "-E, --encrypt          encrypt input for a recipient")
	f(i, "-D, --decrypt          decrypt and verify input")
	f(i, "-S, --sign             produce a detached/inline/cleartext signature")
	f(i, "-V, --verify           verify a signed message")
	f("Options:")
	f(i, "-a, --armor            encode output in ASCII armor")
	f(i, "-k, --keyring FILE     flat keyring file to load")
	f(i, "-r, --recipient KEYID  encrypt to this key ID or user ID substring")
	f(i, "-s, --signer KEYID     sign with this key ID or user ID substring")
	f(i, "-i, --passfile FILE    read symmetric passphrase from file")
	f(i, "-o, --output FILE      write output to FILE instead of stdout")
	f(i, "    --kdf=argon2       stretch the passfile passphrase with Argon2id first")
	f(i, "    --detached FILE    verify against this detached signature file")
	f(i, "    --cleartext        with -S, produce a cleartext-signed message")
	f(i, "-h, --help             print this help message")
	f(i, "-v, --verbose          print additional information")
	bw.Flush()
}

func parse() *config {
	conf := config{cmd: cmdDecrypt}

	options := []optparse.Option{
		{"encrypt", 'E', optparse.KindNone},
		{"decrypt", 'D', optparse.KindNone},
		{"sign", 'S', optparse.KindNone},
		{"verify", 'V', optparse.KindNone},

		{"armor", 'a', optparse.KindNone},
		{"keyring", 'k', optparse.KindRequired},
		{"recipient", 'r', optparse.KindRequired},
		{"signer", 's', optparse.KindRequired},
		{"passfile", 'i', optparse.KindRequired},
		{"output", 'o', optparse.KindRequired},
		{"kdf", 0, optparse.KindRequired},
		{"detached", 0, optparse.KindRequired},
		{"cleartext", 0, optparse.KindNone},
		{"help", 'h', optparse.KindNone},
		{"verbose", 'v', optparse.KindNone},
	}

	results, rest, err := optparse.Parse(options, os.Args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, result := range results {
		switch result.Long {
		case "encrypt":
			conf.cmd = cmdEncrypt
		case "decrypt":
			conf.cmd = cmdDecrypt
		case "sign":
			conf.cmd = cmdSign
		case "verify":
			conf.cmd = cmdVerify
		case "armor":
			conf.armor = true
		case "keyring":
			conf.keyring = result.Optarg
		case "recipient":
			conf.recipient = result.Optarg
		case "signer":
			conf.signer = result.Optarg
		case "passfile":
			conf.passfile = result.Optarg
		case "output":
			conf.output = result.Optarg
		case "kdf":
			conf.kdf = result.Optarg
		case "detached":
			conf.detached = result.Optarg
		case "cleartext":
			conf.cleartext = true
		case "help":
			usage(os.Stdout)
			os.Exit(0)
		case "verbose":
			conf.verbose = true
		}
	}
	conf.args = rest
	return &conf
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(args[0])
}

func writeOutput(conf *config, data []byte) error {
	if conf.output == "" || conf.output == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return ioutil.WriteFile(conf.output, data, 0600)
}

func loadKeyring(ctx *pgp.Context, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fatal("%s: %s", path, err)
	}
	defer f.Close()
	n, err := ctx.LoadKeyring(f, pgp.FormatFlat)
	if err != nil {
		fatal("loading %s: %s", path, err)
	}
	if n == 0 {
		fatal("%s: no keys found", path)
	}
}

func resolveOne(ctx *pgp.Context, query string) *key.Key {
	keys, err := ctx.Lookup(query)
	if err != nil {
		fatal("%s: %s", query, err)
	}
	if len(keys) > 1 {
		fatal("%s: ambiguous, matches %d keys", query, len(keys))
	}
	return keys[0]
}

func main() {
	conf := parse()

	ctx, err := pgp.New()
	if err != nil {
		fatal("%s", err)
	}
	if conf.verbose {
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.DebugLevel)
		ctx.Log = logger
	}
	loadKeyring(ctx, conf.keyring)

	input, err := readInput(conf.args)
	if err != nil {
		fatal("reading input: %s", err)
	}

	switch conf.cmd {
	case cmdEncrypt:
		opts := pgp.EncryptOptions{
			Cipher: primitive.CipherAES256,
			Armor:  conf.armor,
		}
		if conf.recipient != "" {
			opts.Recipients = []*key.Key{resolveOne(ctx, conf.recipient)}
		} else if conf.passfile != "" {
			pass, err := ioutil.ReadFile(conf.passfile)
			if err != nil {
				fatal("%s: %s", conf.passfile, err)
			}
			opts.Passphrase = bytes.TrimRight(pass, "\r\n")
			if conf.kdf == "argon2" {
				opts.Passphrase = stretchPassphrase(opts.Passphrase)
			}
		} else {
			fatal("-E requires -r keyid or -i passfile")
		}
		if conf.signer != "" {
			opts.Sign = &pgp.SignOptions{
				Signer:   resolveOne(ctx, conf.signer),
				HashAlgo: primitive.HashSHA256,
			}
		}
		out, err := ctx.Encrypt(input, opts)
		if err != nil {
			fatal("%s", err)
		}
		if err := writeOutput(conf, out); err != nil {
			fatal("writing output: %s", err)
		}

	case cmdDecrypt:
		if conf.passfile != "" {
			pass, err := ioutil.ReadFile(conf.passfile)
			if err != nil {
				fatal("%s: %s", conf.passfile, err)
			}
			passphrase := bytes.TrimRight(pass, "\r\n")
			if conf.kdf == "argon2" {
				passphrase = stretchPassphrase(passphrase)
			}
			ctx.Passwords = provider.StaticPassword(passphrase)
		}
		result, err := ctx.Decrypt(input, pgp.DecryptOptions{})
		if err != nil {
			fatal("%s", err)
		}
		if err := writeOutput(conf, result.Content); err != nil {
			fatal("writing output: %s", err)
		}
		if conf.verbose && result.Verified {
			fmt.Fprintln(os.Stderr, "pgpcore: signature verified")
		}

	case cmdSign:
		if conf.signer == "" {
			fatal("-S requires -s keyid")
		}
		out, err := ctx.Sign(input, pgp.SignOptions{
			Signer:    resolveOne(ctx, conf.signer),
			HashAlgo:  primitive.HashSHA256,
			Cleartext: conf.cleartext,
		}, conf.armor, "")
		if err != nil {
			fatal("%s", err)
		}
		if err := writeOutput(conf, out); err != nil {
			fatal("writing output: %s", err)
		}

	case cmdVerify:
		opts := pgp.DecryptOptions{}
		if conf.detached != "" {
			sigData, err := ioutil.ReadFile(conf.detached)
			if err != nil {
				fatal("%s: %s", conf.detached, err)
			}
			opts.Detached = sigData
		}
		result, err := ctx.Verify(input, opts)
		if err != nil {
			fatal("%s", err)
		}
		fmt.Fprintln(os.Stderr, "pgpcore: good signature")
		if err := writeOutput(conf, result.Content); err != nil {
			fatal("writing output: %s", err)
		}
	}
}
