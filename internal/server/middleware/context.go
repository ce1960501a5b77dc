package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/parley-ai/parley/backend/internal/jobs"
	"github.com/parley-ai/parley/backend/pkg/store"
)

type App struct {
	DBConn     *pgxpool.Pool
	Queue      *amqp091.Channel
	GraphStore store.GraphStore
	Jobs       *jobs.Store
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	graphStore store.GraphStore,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn:     db,
				Queue:      queue,
				GraphStore: graphStore,
				Jobs:       jobs.NewStore(db),
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
