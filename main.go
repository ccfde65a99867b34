package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
	"wagerBot/config"
	"wagerBot/scheduler"
	"wagerBot/services"
	"wagerBot/services/interactionService"
	"wagerBot/services/messageService"
	"wagerBot/services/wagerService"
)

func main() {
	app := &cli.App{
		Name:  "wagerbot",
		Usage: "Discord accountability wagers with peer betting",
		Commands: []*cli.Command{
			commandBot(),
			commandSweep(),
			commandMigrate(),
		},
		DefaultCommand: "bot",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBot() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "connect to Discord and run the scheduled jobs",
		Action: func(c *cli.Context) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			if cfg.DiscordToken == "" {
				return errors.New("DISCORD_BOT_TOKEN not set in environment variables")
			}

			dg, err := discordgo.New("Bot " + cfg.DiscordToken)
			if err != nil {
				return err
			}

			rdb, err := config.OpenRedis(cfg)
			if err != nil {
				return err
			}

			announcer := &messageService.DiscordAnnouncer{Session: dg, DB: db}
			engine := wagerService.NewEngine(db, cfg.Verifier(), cfg.Narrator(), announcer)
			handler := &services.Handler{
				DB:       db,
				Engine:   engine,
				Sessions: interactionService.NewSessionStore(rdb),
			}

			dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
				switch i.Type {
				case discordgo.InteractionApplicationCommand:
					handler.HandleSlashCommand(s, i)
				case discordgo.InteractionMessageComponent:
					handler.HandleComponentInteraction(s, i)
				}
			})
			dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
				if err := s.UpdateGameStatus(0, "Holding you to it"); err != nil {
					log.Printf("Error updating status: %v", err)
				}
			})
			dg.Identify.Intents = discordgo.IntentsGuilds

			if err := dg.Open(); err != nil {
				return err
			}
			defer func() {
				if err := dg.Close(); err != nil {
					log.Printf("Error closing Discord session: %v", err)
				}
			}()

			if err := services.RegisterCommands(dg); err != nil {
				return err
			}

			cronRunner, err := scheduler.SetupCron(engine, db, announcer, cfg.SweepSchedule, cfg.StatsSchedule)
			if err != nil {
				return err
			}

			log.Println("Bot is running. Press CTRL+C to exit.")
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			log.Println("Shutting down")
			<-cronRunner.Stop().Done()
			engine.Wait()
			return nil
		},
	}
}

func commandSweep() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "fail every overdue wager once and exit",
		Action: func(c *cli.Context) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			engine := wagerService.NewEngine(db, cfg.Verifier(), cfg.Narrator(), messageService.LogAnnouncer{})
			failed, err := engine.SweepExpired(context.Background())
			engine.Wait()
			if err != nil {
				return err
			}
			log.Printf("Sweep failed %d wagers", failed)
			return nil
		},
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the database schema",
		Action: func(c *cli.Context) error {
			_, _, err := setup()
			if err != nil {
				return err
			}
			log.Println("Migration complete")
			return nil
		},
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := config.OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
