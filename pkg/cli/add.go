package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/cli/internal/output"
	"github.com/getimposd/imposd/pkg/imposter"
)

var (
	addProtocol string
	addPort     int
	addName     string
	addPath     string
	addMethod   string
	addStatus   int
	addBody     string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new imposter",
	Long: `Create an imposter on the running server. With --protocol given, the
imposter is built from flags; without it, an interactive wizard asks for
the details.

The flags cover the single-stub case. For anything richer (multiple
stubs, proxies, predicates beyond path and method) POST a full config to
the management API instead.`,
	Example: `  # Interactive wizard
  imposd add

  # One-shot HTTP stub
  imposd add --protocol http --port 4545 --path /orders --status 201 --body '{"id": 1}'

  # TCP imposter answering with a fixed payload
  imposd add --protocol tcp --port 4546 --body 'OK'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare "imposd add" means the flags were intentionally
		// omitted; collect the details interactively.
		if !cmd.Flags().Changed("protocol") {
			if err := runAddWizard(); err != nil {
				return err
			}
		}

		cfg, err := buildImposterConfig(addProtocol, addPort, addName, addPath, addMethod, addStatus, addBody)
		if err != nil {
			return err
		}

		created, err := apiClient().CreateImposter(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(created)
		}
		fmt.Printf("Created %s imposter on port %d\n", created.Protocol, created.Port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addProtocol, "protocol", "http", "imposter protocol (http, https, tcp, smtp)")
	addCmd.Flags().IntVar(&addPort, "port", 0, "port to bind (0 picks a free one)")
	addCmd.Flags().StringVar(&addName, "name", "", "imposter display name")
	addCmd.Flags().StringVar(&addPath, "path", "", "URL path to match (http/https)")
	addCmd.Flags().StringVar(&addMethod, "method", "", "HTTP method to match (http/https)")
	addCmd.Flags().IntVar(&addStatus, "status", 200, "response status code (http/https)")
	addCmd.Flags().StringVar(&addBody, "body", "", "response body (http/https) or payload (tcp)")
}

func runAddWizard() error {
	portStr := ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What protocol should the imposter speak?").
				Options(
					huh.NewOption("HTTP", "http"),
					huh.NewOption("HTTPS", "https"),
					huh.NewOption("TCP", "tcp"),
					huh.NewOption("SMTP", "smtp"),
				).
				Value(&addProtocol),
			huh.NewInput().
				Title("Which port? (empty picks a free one)").
				Placeholder("4545").
				Value(&portStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return errors.New("port must be a number between 1 and 65535")
					}
					return nil
				}),
			huh.NewInput().
				Title("Imposter name (optional)").
				Value(&addName),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if portStr != "" {
		addPort, _ = strconv.Atoi(portStr)
	}

	switch addProtocol {
	case "http", "https":
		statusStr := strconv.Itoa(addStatus)
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("URL path to match (empty matches every path)").
					Placeholder("/api/v1/orders").
					Value(&addPath),
				huh.NewSelect[string]().
					Title("HTTP method to match").
					Options(
						huh.NewOption("Any", ""),
						huh.NewOption("GET", "GET"),
						huh.NewOption("POST", "POST"),
						huh.NewOption("PUT", "PUT"),
						huh.NewOption("DELETE", "DELETE"),
						huh.NewOption("PATCH", "PATCH"),
					).
					Value(&addMethod),
				huh.NewInput().
					Title("What status code should it return?").
					Value(&statusStr).
					Validate(func(s string) error {
						n, err := strconv.Atoi(s)
						if err != nil || n < 100 || n > 599 {
							return errors.New("status code must be between 100 and 599")
						}
						return nil
					}),
				huh.NewText().
					Title("Response body").
					Placeholder(`{"status": "ok"}`).
					Value(&addBody),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		addStatus, _ = strconv.Atoi(statusStr)
	case "tcp":
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewText().
					Title("Response payload").
					Placeholder("220 ready").
					Value(&addBody),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}
	return nil
}

// buildImposterConfig assembles a single-stub imposter from the add
// command's inputs.
func buildImposterConfig(protocol string, port int, name, path, method string, status int, body string) (imposter.Config, error) {
	cfg := imposter.Config{
		Protocol: imposter.Protocol(protocol),
		Port:     port,
		Name:     name,
	}

	switch imposter.Protocol(protocol) {
	case imposter.ProtocolHTTP, imposter.ProtocolHTTPS:
		equals := map[string]any{}
		if path != "" {
			equals["path"] = path
		}
		if method != "" {
			equals["method"] = method
		}
		stub := imposter.Stub{
			Responses: []imposter.Response{{
				Is: &imposter.ISResponse{StatusCode: status, Body: body},
			}},
		}
		if len(equals) > 0 {
			stub.Predicates = []imposter.Predicate{{Equals: equals}}
		}
		cfg.Stubs = []imposter.Stub{stub}
	case imposter.ProtocolTCP:
		if body != "" {
			cfg.Stubs = []imposter.Stub{{
				Responses: []imposter.Response{{
					Is: &imposter.ISResponse{Data: body},
				}},
			}}
		}
	case imposter.ProtocolSMTP:
		// smtp imposters accept mail without any stubs
	default:
		return imposter.Config{}, fmt.Errorf("unrecognized protocol %q", protocol)
	}
	return cfg, nil
}
