package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/wantanidea/wantanidea-cli/internal/api"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// NewAPICmd creates the api command for raw API access. Paths under /auth/
// are sent with the service-basic credential, everything else with the
// bearer token (and the usual transparent refresh).
func NewAPICmd() *cobra.Command {
	var data, jqExpr string

	cmd := &cobra.Command{
		Use:   "api <method> <path>",
		Short: "Raw API access",
		Long:  "Make a raw request to any WantAnIdea endpoint. Useful for operations not covered by dedicated commands.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			method := strings.ToUpper(args[0])
			switch method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				return output.ErrUsage(fmt.Sprintf("unsupported method %q", args[0]))
			}

			path := args[1]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			var body any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
				}
			}

			mode := api.AuthBearer
			if strings.HasPrefix(path, "/auth/") {
				mode = api.AuthService
			}

			resp, err := app.API.Do(cmd.Context(), method, path, body, mode)
			if err != nil {
				return err
			}
			if resp.Empty() {
				return app.OK(nil, output.WithSummary(fmt.Sprintf("%s %s: no content", method, path)))
			}

			var decoded any
			if err := resp.UnmarshalData(&decoded); err != nil {
				return output.ErrAPI(resp.StatusCode, "response is not JSON")
			}

			if jqExpr != "" {
				filtered, err := applyJQ(jqExpr, decoded)
				if err != nil {
					return err
				}
				return app.OK(filtered)
			}

			return app.OK(decoded)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "Filter the response with a jq expression")

	return cmd
}

// applyJQ runs a gojq query over the decoded response. A query yielding a
// single value returns that value; multiple values come back as an array.
func applyJQ(expr string, input any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, output.ErrUsageHint("Invalid jq expression", err.Error())
	}

	var results []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, output.ErrUsageHint("jq evaluation failed", err.Error())
		}
		results = append(results, v)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}
