package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/idlayer/authfront/pkg/auth"
	"github.com/idlayer/authfront/pkg/csrf"
	"github.com/idlayer/authfront/pkg/email"
	"github.com/idlayer/authfront/pkg/gateway"
	"github.com/idlayer/authfront/pkg/idp"
	"github.com/idlayer/authfront/pkg/prettylog"
	"github.com/idlayer/authfront/pkg/session"
	"github.com/idlayer/authfront/pkg/token"
	"github.com/idlayer/authfront/pkg/web"
	"github.com/idlayer/authfront/pkg/webhook"
)

type config struct {
	AppURL     string `env:"APP_URL" validate:"required,url"`
	AppSecret  string `env:"APP_SECRET" validate:"required"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	Env        string `env:"ENV" envDefault:"development"`
	LogPretty  bool   `env:"LOG_PRETTY"`

	IDPAPIURL        string `env:"IDP_API_URL" envDefault:"https://api.workos.com"`
	IDPClientID      string `env:"IDP_CLIENT_ID" validate:"required"`
	IDPAPIKey        string `env:"IDP_API_KEY" validate:"required"`
	IDPWebhookSecret string `env:"IDP_WEBHOOK_SECRET"`
	OAuthRedirectURI string `env:"OAUTH_REDIRECT_URI" validate:"required,url"`

	EmailAPIURL string `env:"EMAIL_API_URL" envDefault:"https://api.useplunk.com"`
	EmailAPIKey string `env:"EMAIL_API_KEY" validate:"required"`

	ProvidersPolicyPath string `env:"PROVIDERS_POLICY_PATH"`
}

func main() {
	godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.LogPretty {
		slog.SetDefault(slog.New(prettylog.NewHandler(slog.LevelDebug)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}

	production := cfg.Env == "production"

	idpClient := idp.NewClient(idp.Config{
		APIURL:      cfg.IDPAPIURL,
		ClientID:    cfg.IDPClientID,
		APIKey:      cfg.IDPAPIKey,
		RedirectURI: cfg.OAuthRedirectURI,
	})

	sessions, err := session.NewStore(session.Config{
		Secret:     cfg.AppSecret,
		Production: production,
	})
	if err != nil {
		log.Fatal(err)
	}

	tokens, err := token.NewValidator(context.Background(), idpClient.JWKSURL())
	if err != nil {
		log.Fatal(err)
	}

	nonces, err := auth.NewNonceService()
	if err != nil {
		log.Fatal(err)
	}

	var providers *auth.ProvidersPolicy
	if cfg.ProvidersPolicyPath != "" {
		providers, err = auth.LoadProvidersPolicy(cfg.ProvidersPolicyPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	mailer := email.NewMailer(idpClient, email.NewSender(email.Config{
		APIURL: cfg.EmailAPIURL,
		APIKey: cfg.EmailAPIKey,
	}), cfg.AppURL)

	authService, err := auth.NewService(auth.Config{
		IDP:       idpClient,
		Mailer:    mailer,
		Nonces:    nonces,
		Providers: providers,
	})
	if err != nil {
		log.Fatal(err)
	}

	csrfGuard := csrf.NewGuard(production)
	csrfGuard.Skipper = gateway.DefaultSkipper

	root := echo.New()
	root.HideBanner = true
	root.Validator = web.NewValidator()
	root.Use(middleware.Recover())
	root.Use(gateway.Middleware(gateway.Config{
		Sessions: sessions,
		Tokens:   tokens,
		IDP:      idpClient,
	}))
	root.Use(csrfGuard.Ensure)

	handler := &web.Handler{
		Auth:     authService,
		Sessions: sessions,
		CSRF:     csrfGuard,
		Tokens:   tokens,
	}
	handler.MountRoutes(root.Group("/auth"))

	if cfg.IDPWebhookSecret != "" {
		webhook.NewHandler(cfg.IDPWebhookSecret).MountRoutes(root.Group("/webhooks"))
	}

	slog.Info("starting authfront", "addr", cfg.ListenAddr, "env", cfg.Env)
	log.Fatal(root.Start(cfg.ListenAddr))
}
