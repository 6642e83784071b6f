package cmd

import (
	"fmt"
	log2 "log"
	"net/http"
	"os"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	// Backend drivers registered for database/sql
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/datastax/sql-data-gateway/auth"
	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/endpoint"
	"github.com/datastax/sql-data-gateway/log"
)

const defaultGraphQLPath = "/graphql"
const defaultRESTPath = "/api"

// Environment variables prefixed with "DATA_GATEWAY_" can override settings e.g. "DATA_GATEWAY_PORT"
const envVarPrefix = "data_gateway"

var cfgFile string
var logger log.Logger

var serverCmd = &cobra.Command{
	Use:   os.Args[0] + " --entities [FILE] [OPTIONS]",
	Short: "GraphQL and REST endpoints for relational databases",
	Args: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("entities") == "" {
			return fmt.Errorf("an entities configuration file is required")
		}
		if !viper.GetBool("start-graphql") && !viper.GetBool("start-rest") {
			return fmt.Errorf("at least one endpoint type should be started")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataEndpoint := createEndpoint()

		router := createRouter()
		endpointNames := make([]string, 0, 2)
		if viper.GetBool("start-graphql") {
			addGraphQLRoutes(router, dataEndpoint)
			endpointNames = append(endpointNames, "GraphQL")
		}
		if viper.GetBool("start-rest") {
			addRESTRoutes(router, dataEndpoint)
			endpointNames = append(endpointNames, "REST")
		}

		listenAndServe(router, viper.GetInt("port"), strings.Join(endpointNames, "/"))
	},
}

// Execute starts the GraphQL/REST endpoints
func Execute() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log2.Fatalf("unable to initialize logger: %v", err)
	}

	logger = log.NewZapLogger(zapLogger)

	flags := serverCmd.PersistentFlags()

	// General endpoint flags
	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.StringP("entities", "e", "", "declarative entities configuration file (yaml or json)")
	flags.String("backend", "", "database backend: postgresql, mysql or sqlite (overrides the entities file)")
	flags.String("connection-string", "", "backend connection string (overrides the entities file)")
	flags.Bool("development", false, "enable development mode: error responses include internal detail")
	flags.Bool("request-logging", false, "enable request logging")
	flags.Duration("schema-update-interval", endpoint.DefaultSchemaUpdateDuration,
		"interval used to refresh the entity metadata snapshot")
	flags.StringSlice("operations", []string{
		"EntityCreate",
		"EntityRead",
		"EntityUpdate",
		"EntityDelete",
	}, "list of supported entity operations. options: EntityCreate,EntityRead,EntityUpdate,EntityDelete")
	flags.String("access-control-allow-origin", "", "Access-Control-Allow-Origin header value")
	flags.String("jwt-secret", "", "HMAC secret used to verify bearer tokens")
	flags.Int("port", 8080, "endpoint port")

	// GraphQL specific flags
	flags.Bool("start-graphql", true, "start the GraphQL endpoint")
	flags.String("graphql-path", defaultGraphQLPath, "GraphQL endpoint path")

	// REST specific flags
	flags.Bool("start-rest", true, "start the REST endpoint")
	flags.String("rest-path", defaultRESTPath, "REST endpoint root path")

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := serverCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func createEndpoint() *endpoint.DataEndpoint {
	runtime, err := config.LoadRuntimeConfig(viper.GetString("entities"))
	if err != nil {
		logger.Fatal("unable to load entities configuration", "error", err)
	}
	if backend := viper.GetString("backend"); backend != "" {
		runtime.Backend = backend
	}
	if connectionString := viper.GetString("connection-string"); connectionString != "" {
		runtime.ConnectionString = connectionString
	}

	supportedOps := viper.GetStringSlice("operations")
	ops, err := config.Ops(supportedOps...)
	if err != nil {
		logger.Fatal("invalid supported operation", "operations", supportedOps, "error", err)
	}

	updateInterval := viper.GetDuration("schema-update-interval")
	if updateInterval <= 0 {
		updateInterval = endpoint.DefaultSchemaUpdateDuration
	}

	cfg := endpoint.NewEndpointConfigWithLogger(logger, runtime)
	cfg.
		WithSupportedOperations(ops).
		WithDevelopmentMode(viper.GetBool("development")).
		WithSchemaUpdateInterval(updateInterval)

	dataEndpoint, err := cfg.NewEndpoint()
	if err != nil {
		logger.Fatal("unable to create new endpoint", "error", err)
	}

	return dataEndpoint
}

func addGraphQLRoutes(router *httprouter.Router, dataEndpoint *endpoint.DataEndpoint) {
	routes, err := dataEndpoint.RoutesGraphQL(viper.GetString("graphql-path"))
	if err != nil {
		logger.Fatal("unable to generate graphql routes", "error", err)
	}

	for _, route := range routes {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
}

func addRESTRoutes(router *httprouter.Router, dataEndpoint *endpoint.DataEndpoint) {
	for _, route := range dataEndpoint.RoutesREST(viper.GetString("rest-path")) {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
}

func maybeAddRequestLogging(handler http.Handler) http.Handler {
	if viper.GetBool("request-logging") {
		handler = log.NewLoggingHandler(handler, logger)
	}
	return handler
}

func maybeAddCORS(handler http.Handler) http.Handler {
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", value)
			handler.ServeHTTP(w, r)
		})
	}
	return handler
}

func initialize() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("using config file", "file", viper.ConfigFileUsed())
		}
	}
}

func createRouter() *httprouter.Router {
	router := httprouter.New()
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Access-Control-Request-Method") != "" {
				header := w.Header()
				header.Set("Access-Control-Allow-Method", r.Header.Get("Access-Control-Request-Method"))
				header.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
				header.Set("Access-Control-Allow-Origin", value)
			}

			w.WriteHeader(http.StatusNoContent)
		})
	}
	return router
}

func listenAndServe(handler http.Handler, port int, endpointNames string) {
	logger.Info("server listening",
		"port", port,
		"type", endpointNames)
	handler = auth.Middleware(handler, viper.GetString("jwt-secret"))
	handler = maybeAddCORS(maybeAddRequestLogging(handler))
	err := http.ListenAndServe(fmt.Sprintf(":%d", port), handler)
	if err != nil {
		logger.Fatal("unable to start server",
			"port", port,
			"error", err)
	}
}
