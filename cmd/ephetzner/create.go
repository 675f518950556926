package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jbweber/ephetzner/internal/cache"
	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/cloudinit"
	"github.com/jbweber/ephetzner/internal/i18n"
	"github.com/jbweber/ephetzner/internal/output"
	"github.com/jbweber/ephetzner/internal/prompt"
	"github.com/jbweber/ephetzner/internal/vm"
)

// create flags
var (
	createName           string
	createProject        string
	createServerType     string
	createImage          string
	createSSHKey         string
	createDuckDNS        bool
	createDuckDNSHost    string
	createScript         string
	createScriptRuntime  string
	createNonInteractive bool
	createYes            bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an ephemeral server",
	Long: `Create a Hetzner Cloud server labeled Type=Ephemeral.

Missing values are asked for interactively. Server types and images are
read from a local cache that is refreshed every hour.

Examples:
  ephetzner create
  ephetzner create --name lab --server-type cx22 --image debian-12 --yes
  ephetzner create --name lab --server-type cx22 --image debian-12 \
    --script setup.py --script-runtime python --duckdns`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := newPrompter(createNonInteractive)
		if err := ensureToken(cfg, p); err != nil {
			return err
		}

		opts, err := buildCreateOptions(ctx, cmd, cfg.DuckDNSSubdomain, p, func() (types []cloud.ServerType, images []cloud.Image, err error) {
			store := catalogStore()
			if types, err = vm.ServerTypes(ctx, cfg, store); err != nil {
				return nil, nil, err
			}
			if images, err = vm.Images(ctx, cfg, store); err != nil {
				return nil, nil, err
			}
			return types, images, nil
		})
		if err != nil {
			return err
		}

		if opts.SSHPublicKey == "" {
			opts.SSHPublicKey = cfg.SSH.PublicKey
		}

		fmt.Print(output.RenderSummary(i18n.T("Operation summary"), createSummary(opts)))

		if !createYes {
			ok, err := p.Confirm(i18n.T("Provision server?"), true)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println(i18n.T("Operation cancelled"))
				return nil
			}
		}

		server, err := vm.Create(ctx, cfg, opts)
		if err != nil {
			return errors.New(i18n.T("Server creation failed: %v", err))
		}

		fmt.Println(i18n.T("Server created successfully: %s (%s)", server.Name, strconv.FormatInt(server.ID, 10)))
		ipv4 := server.IPv4
		if ipv4 == "" {
			ipv4 = i18n.T("no IPv4")
		}
		fmt.Printf("  %s: %s\n", i18n.T("IPv4 address"), ipv4)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Server name")
	createCmd.Flags().StringVar(&createProject, "project", "", "Value of the Project label (default \"default\")")
	createCmd.Flags().StringVar(&createServerType, "server-type", "", "Server type, e.g. cx22")
	createCmd.Flags().StringVar(&createImage, "image", "", "Image name, e.g. debian-12")
	createCmd.Flags().StringVar(&createSSHKey, "ssh-key", "", "Public key file or authorized_keys line (default ssh.public_key from config)")
	createCmd.Flags().BoolVar(&createDuckDNS, "duckdns", false, "Point a DuckDNS subdomain at the new server")
	createCmd.Flags().StringVar(&createDuckDNSHost, "duckdns-host", "", "DuckDNS subdomain (default duckdns_subdomain from config, then the server name)")
	createCmd.Flags().StringVar(&createScript, "script", "", "Script to run on first boot")
	createCmd.Flags().StringVar(&createScriptRuntime, "script-runtime", "shell", "Script runtime: shell or python")
	createCmd.Flags().BoolVar(&createNonInteractive, "non-interactive", false, "Never prompt; fail when a required value is missing")
	createCmd.Flags().BoolVarP(&createYes, "yes", "y", false, "Skip the confirmation")
}

// buildCreateOptions merges flags and answers into CreateOptions.
// The catalog is only fetched once a type or image must be resolved.
func buildCreateOptions(ctx context.Context, cmd *cobra.Command, defaultHost string, p *prompt.Prompter, catalog func() ([]cloud.ServerType, []cloud.Image, error)) (vm.CreateOptions, error) {
	var opts vm.CreateOptions
	var err error

	// Name
	opts.Name = strings.TrimSpace(createName)
	if opts.Name == "" {
		if opts.Name, err = p.AskRequired(i18n.T("Provide server name:")); err != nil {
			return opts, fmt.Errorf("%s: %w", i18n.T("Server name is required"), err)
		}
	}

	// Project
	opts.Project = strings.TrimSpace(createProject)
	if !cmd.Flags().Changed("project") {
		if opts.Project, err = p.Ask(i18n.T("Provide Hetzner project (leave blank for default)"), cloud.DefaultProject); err != nil {
			return opts, err
		}
	}

	// Type and image
	types, images, err := catalog()
	if err != nil {
		return opts, err
	}
	if opts.ServerType, err = chooseServerType(types, createServerType, p); err != nil {
		return opts, err
	}
	if opts.Image, err = chooseImage(images, createImage, p); err != nil {
		return opts, err
	}

	// SSH key
	if opts.SSHPublicKey, err = readPublicKey(createSSHKey); err != nil {
		return opts, err
	}

	// DuckDNS
	opts.DuckDNS = createDuckDNS || createDuckDNSHost != ""
	if !cmd.Flags().Changed("duckdns") && !opts.DuckDNS {
		if opts.DuckDNS, err = p.Confirm(i18n.T("Configure DuckDNS?"), false); err != nil {
			return opts, err
		}
	}
	if opts.DuckDNS {
		opts.DuckDNSHost = createDuckDNSHost
		if opts.DuckDNSHost == "" {
			def := defaultHost
			if def == "" {
				def = opts.Name
			}
			if opts.DuckDNSHost, err = p.Ask(i18n.T("Provide DuckDNS subdomain:"), def); err != nil {
				return opts, err
			}
		}
	}

	// Script
	if opts.Script, err = chooseScript(cmd, p); err != nil {
		return opts, err
	}

	return opts, nil
}

func chooseServerType(types []cloud.ServerType, want string, p *prompt.Prompter) (string, error) {
	if len(types) == 0 {
		return "", errors.New(i18n.T("No server types available"))
	}

	if want != "" {
		for _, t := range types {
			if t.Name == want {
				return want, nil
			}
		}
		return "", errors.New(i18n.T("Server type %s not found", want))
	}

	options := make([]string, len(types))
	for i, t := range types {
		options[i] = fmt.Sprintf("%s (%d vCPU, %g GB RAM, %d GB disk)", t.Name, t.Cores, t.MemoryGB, t.DiskGB)
	}
	idx, err := p.Select(i18n.T("Select server type"), options)
	if err != nil {
		return "", err
	}
	return types[idx].Name, nil
}

func chooseImage(images []cloud.Image, want string, p *prompt.Prompter) (string, error) {
	if len(images) == 0 {
		return "", errors.New(i18n.T("No operating system images available"))
	}

	if want != "" {
		for _, img := range images {
			if img.Name == want {
				return want, nil
			}
		}
		return "", errors.New(i18n.T("Image %s not found", want))
	}

	options := make([]string, len(images))
	for i, img := range images {
		options[i] = img.Name
		if img.Description != "" && img.Description != img.Name {
			options[i] = fmt.Sprintf("%s (%s)", img.Name, img.Description)
		}
	}
	idx, err := p.Select(i18n.T("Select operating system image"), options)
	if err != nil {
		return "", err
	}
	return images[idx].Name, nil
}

func chooseScript(cmd *cobra.Command, p *prompt.Prompter) (*cloudinit.Script, error) {
	path := strings.TrimSpace(createScript)
	runtime := createScriptRuntime

	if path == "" {
		add, err := p.Confirm(i18n.T("Add a cloud-init script?"), false)
		if err != nil || !add {
			return nil, err
		}

		if !cmd.Flags().Changed("script-runtime") {
			runtimes := []cloudinit.Runtime{cloudinit.RuntimeShell, cloudinit.RuntimePython}
			idx, err := p.Select(i18n.T("Select script runtime"), []string{string(runtimes[0]), string(runtimes[1])})
			if err != nil {
				return nil, err
			}
			runtime = string(runtimes[idx])
		}

		if path, err = p.AskRequired(i18n.T("Provide path to the script")); err != nil {
			return nil, err
		}
	}

	path = expandHome(path)
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(i18n.T("File %s does not exist", path))
	}
	return cloudinit.LoadScript(path, runtime)
}

// readPublicKey accepts a public key file or an authorized_keys line.
func readPublicKey(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "ssh-") || strings.HasPrefix(value, "ecdsa-") {
		return value, nil
	}

	data, err := os.ReadFile(expandHome(value))
	if err != nil {
		return "", fmt.Errorf("failed to read public key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func createSummary(opts vm.CreateOptions) []output.Row {
	dns := i18n.T("No")
	if opts.DuckDNS {
		host := opts.DuckDNSHost
		if host == "" {
			host = opts.Name
		}
		dns = i18n.T("Yes – %s", host)
	}

	script := i18n.T("None")
	if opts.Script != nil {
		script = fmt.Sprintf("%s (%s)", opts.Script.Path, opts.Script.Runtime)
	}

	key := i18n.T("none")
	if opts.SSHPublicKey != "" {
		fields := strings.Fields(opts.SSHPublicKey)
		key = fields[0]
		if len(fields) > 2 {
			key = fields[0] + " " + fields[2]
		}
	}

	project := opts.Project
	if project == "" {
		project = cloud.DefaultProject
	}

	return []output.Row{
		{Key: i18n.T("Server name"), Value: opts.Name},
		{Key: i18n.T("Project"), Value: project},
		{Key: i18n.T("Server type"), Value: opts.ServerType},
		{Key: i18n.T("Image"), Value: opts.Image},
		{Key: i18n.T("DuckDNS"), Value: dns},
		{Key: i18n.T("Cloud-init"), Value: script},
		{Key: i18n.T("SSH key"), Value: key},
	}
}

// catalogStore opens the catalog cache, falling back to a temp directory
// when the home directory cannot be resolved.
func catalogStore() *cache.Store {
	dir, err := cache.DefaultDir()
	if err != nil {
		log.Debug().Err(err).Msg("Using temporary cache directory")
		dir = filepath.Join(os.TempDir(), "ephetzner-cache")
	}
	return cache.New(dir, cache.DefaultTTL)
}
