// Package serve exposes the cache as a read-only json api for the dashboard
package serve

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/hosts"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cotenancy"
	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

var (
	serveLong    = "Serve environments, host groups and signatures from the local cache as json"
	serveExample = `  cloudfleet serve
  cloudfleet serve --addr 127.0.0.1:9000`
)

type ReportStore interface {
	hosts.HostsStore
	ListEnvironments(ctx context.Context, activeOnly bool) ([]entity.Environment, error)
	ListObservations(ctx context.Context, env entity.EnvironmentID) ([]entity.Observation, error)
}

func NewCmdServe(t *terminal.Terminal, store ReportStore, defaultAddr string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:                   "serve",
		DisableFlagsInUseLine: true,
		Short:                 "Serve the dashboard api",
		Long:                  serveLong,
		Example:               serveExample,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t.Vprint(t.Green("listening on %s", addr))
			err := Serve(cmd.Context(), addr, NewRouter(store))
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	return cmd
}

// Serve runs handler on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fleeterrors.WrapAndTrace(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fleeterrors.WrapAndTrace(err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fleeterrors.WrapAndTrace(err)
		}
		return nil
	}
}

type hostResponse struct {
	ID           int      `json:"id"`
	Environments []string `json:"environments"`
}

type environmentResponse struct {
	entity.Environment
	ID     entity.EnvironmentID `json:"id"`
	HostID *int                 `json:"hostId"`
}

type cotenantsResponse struct {
	Environment entity.EnvironmentID `json:"environment"`
	HostID      int                  `json:"hostId"`
	Cotenants   []string             `json:"cotenants"`
}

func NewRouter(store ReportStore) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := handler{store: store}
	api := r.Group("/api")
	api.GET("/hosts", h.listHosts)
	api.GET("/hosts/:id", h.getHost)
	api.GET("/environments", h.listEnvironments)
	api.GET("/environments/:id/cotenants", h.getCotenants)
	api.GET("/environments/:id/signatures", h.listSignatures)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"took":   time.Since(start).Round(time.Microsecond),
		}).Debug("request")
	}
}

type handler struct {
	store ReportStore
}

func (h handler) partition(c *gin.Context) (cotenancy.Partition, bool) {
	p, err := hosts.LoadPartition(c.Request.Context(), h.store)
	if err != nil {
		internalError(c, err)
		return cotenancy.Partition{}, false
	}
	return p, true
}

func (h handler) listHosts(c *gin.Context) {
	p, ok := h.partition(c)
	if !ok {
		return
	}
	out := make([]hostResponse, 0, p.HostCount())
	for host := 0; host < p.HostCount(); host++ {
		out = append(out, hostResponse{ID: host, Environments: p.Members(host)})
	}
	c.JSON(http.StatusOK, gin.H{"hosts": out})
}

func (h handler) getHost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host id must be a number"})
		return
	}
	p, ok := h.partition(c)
	if !ok {
		return
	}
	members := p.Members(id)
	if members == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such host"})
		return
	}
	c.JSON(http.StatusOK, hostResponse{ID: id, Environments: members})
}

func (h handler) listEnvironments(c *gin.Context) {
	envs, err := h.store.ListEnvironments(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		internalError(c, err)
		return
	}
	p, ok := h.partition(c)
	if !ok {
		return
	}
	out := lo.Map(envs, func(e entity.Environment, _ int) environmentResponse {
		resp := environmentResponse{Environment: e, ID: e.ID()}
		if host, ok := p.EnvToHost[string(e.ID())]; ok {
			resp.HostID = lo.ToPtr(host)
		}
		return resp
	})
	c.JSON(http.StatusOK, gin.H{"environments": out})
}

func (h handler) getCotenants(c *gin.Context) {
	env, ok := environmentParam(c)
	if !ok {
		return
	}
	p, ok := h.partition(c)
	if !ok {
		return
	}
	host, found := p.EnvToHost[string(env)]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "environment has no host group"})
		return
	}
	c.JSON(http.StatusOK, cotenantsResponse{
		Environment: env,
		HostID:      host,
		Cotenants:   p.Cotenants(string(env)),
	})
}

func (h handler) listSignatures(c *gin.Context) {
	env, ok := environmentParam(c)
	if !ok {
		return
	}
	obs, err := h.store.ListObservations(c.Request.Context(), env)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"environment": env, "observations": obs})
}

func environmentParam(c *gin.Context) (entity.EnvironmentID, bool) {
	env, err := entity.ParseEnvironmentID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return env, true
}

func internalError(c *gin.Context, err error) {
	log.WithError(err).Error("api request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
