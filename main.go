package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"fieldtrack/config"
	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/geo"
	"fieldtrack/internal/models"
	"fieldtrack/internal/repository"
	"fieldtrack/internal/services"
	"fieldtrack/internal/store"
	"fieldtrack/notify"
)

const usage = `usage: fieldtrack <command> [args]

  login <username> <password>     authenticate and store the session
  status                          show session, attendance and visit state
  attendance <status>             mark today's attendance (Present, Absent, ...)
  attendance-out                  end-of-day attendance checkout
  shops [planned]                 list nearby shops, optionally planned only
  checkin <shopId>                check in at a shop
  checkout                        check out of the active shop visit
  order <productId:qty:price>...  create an order against the active visit
  doa <productId:qty:reason>...   create a DOA request against the active visit
  photos <file>...                upload photos against the active visit
  resolve-orphan                  clear an orphaned visit after reconciliation
  run                             keep the background location pinger running
  logout                          clear the session and daily state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := notify.Init(cfg.TelegramBotToken, cfg.TelegramChatID); err != nil {
		log.Printf("Warning: Failed to init Telegram escalation: %v", err)
	}

	app, err := initApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to init application: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.dispatch(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

// application bundles the wired services behind the CLI verbs.
type application struct {
	cfg        *config.Config
	store      *store.SessionStore
	client     *repository.RESTClient
	provider   geo.Provider
	sessions   *services.SessionService
	attendance *services.AttendanceService
	visits     *services.VisitService
	pinger     *services.Pinger
}

// initApplication initializes all application dependencies.
func initApplication(cfg *config.Config) (*application, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	sessionSource := func() *models.Session {
		sess, err := st.Session()
		if err != nil {
			return nil
		}
		return sess
	}

	client := repository.NewRESTClient(cfg.APIBaseURL, sessionSource)

	// No device location hardware on a desktop run; position comes from
	// config. A real build swaps in the platform provider here.
	provider := &geo.StaticProvider{
		Latitude:  cfg.StaticLatitude,
		Longitude: cfg.StaticLongitude,
		Accuracy:  10,
	}

	// Permission is prompted once at startup, like the app launch flow. A
	// denial is not fatal here: transitions that need a fix surface the
	// failure themselves.
	if granted, err := provider.RequestPermission(context.Background()); err != nil {
		log.Printf("location permission request failed: %v", err)
	} else if !granted {
		log.Printf("location permission denied; location-blocking actions will fail")
	}

	return &application{
		cfg:        cfg,
		store:      st,
		client:     client,
		provider:   provider,
		sessions:   services.NewSessionService(st, client),
		attendance: services.NewAttendanceService(st, client, provider, sessionSource),
		visits:     services.NewVisitService(st, client, client, provider, sessionSource, notify.NewNotifier()),
		pinger:     services.NewPinger(client, provider, sessionSource, cfg.PingDelay, cfg.PingInterval),
	}, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("store close error: %v", err)
	}
}

func (a *application) dispatch(ctx context.Context, verb string, args []string) error {
	switch verb {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <username> <password>")
		}
		_, err := a.sessions.Login(ctx, args[0], args[1])
		return err

	case "logout":
		a.pinger.Stop()
		return a.sessions.Logout(ctx)

	case "status":
		return a.printStatus(ctx)

	case "attendance":
		if len(args) != 1 {
			return fmt.Errorf("usage: attendance <status>")
		}
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		rec, err := a.attendance.CheckIn(ctx, models.AttendanceStatus(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("attendance marked %s (remote id %d)\n", rec.Status, rec.RemoteID)
		return nil

	case "attendance-out":
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		return a.attendance.CheckOut(ctx)

	case "shops":
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		planned := len(args) > 0 && args[0] == "planned"
		return a.printShops(ctx, planned)

	case "checkin":
		if len(args) != 1 {
			return fmt.Errorf("usage: checkin <shopId>")
		}
		shopID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad shop id %q", args[0])
		}
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		visit, err := a.visits.CheckIn(ctx, shopID)
		if err != nil {
			return describeVisitError(err)
		}
		fmt.Printf("checked in at shop %d (visit %d)\n", visit.ShopID, visit.RemoteID)
		return nil

	case "checkout":
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		return a.visits.CheckOut(ctx)

	case "order":
		lines, err := parseOrderLines(args)
		if err != nil {
			return err
		}
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		id, err := a.visits.CreateOrder(ctx, lines)
		if err != nil {
			return err
		}
		fmt.Printf("order created (remote id %d)\n", id)
		return nil

	case "doa":
		items, err := parseDOAItems(args)
		if err != nil {
			return err
		}
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		id, err := a.visits.CreateDOA(ctx, items)
		if err != nil {
			return err
		}
		fmt.Printf("DOA request created (remote id %d)\n", id)
		return nil

	case "photos":
		files, err := readUploadFiles(args)
		if err != nil {
			return err
		}
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		return a.visits.UploadPhotos(ctx, files)

	case "resolve-orphan":
		return a.visits.ResolveOrphan(ctx)

	case "run":
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		return a.runPinger(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", verb)
	}
}

// requireSession redirects to login when no usable session exists.
func (a *application) requireSession(ctx context.Context) error {
	sess, err := a.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("not logged in; run: fieldtrack login <username> <password>")
	}
	return nil
}

func (a *application) printStatus(ctx context.Context) error {
	sess, err := a.sessions.Load(ctx)
	if err != nil && !errors.Is(err, fielderr.ErrSessionExpired) {
		return err
	}
	if sess == nil {
		fmt.Println("session: none (login required)")
		return nil
	}
	fmt.Printf("session: user %d, branch %d, company %d\n", sess.UserID, sess.BranchID, sess.CompanyID)

	state, rec := a.attendance.State(ctx)
	if state == services.DayMarked {
		fmt.Printf("attendance: %s (remote id %d)\n", rec.Status, rec.RemoteID)
	} else {
		fmt.Println("attendance: not marked today")
	}

	if visit := a.visits.Active(ctx); visit != nil {
		fmt.Printf("visit: active at shop %d since %s (visit %d)\n",
			visit.ShopID, visit.CheckInAt.Format("15:04"), visit.RemoteID)
	} else {
		fmt.Println("visit: none")
	}
	return nil
}

func (a *application) printShops(ctx context.Context, planned bool) error {
	shops, err := a.client.ListShops(ctx, planned)
	if err != nil {
		return err
	}

	var pos *models.LatLng
	if fix, err := a.provider.CurrentFix(ctx, geo.DefaultFixTimeout); err == nil {
		p := fix.Point()
		pos = &p
	}

	var nearby []geo.ShopDistance
	if planned {
		nearby = geo.Nearby(pos, shops, a.cfg.RadiusKm)
	} else {
		nearby = geo.NearbyWithin(pos, shops, a.cfg.RadiusKm)
	}
	for _, sd := range nearby {
		if sd.HasDistance {
			fmt.Printf("%6d  %-30s %7.0fm  %s\n", sd.ID, sd.Name, sd.Meters, sd.Address)
		} else {
			fmt.Printf("%6d  %-30s distance unknown  %s\n", sd.ID, sd.Name, sd.Address)
		}
	}
	return nil
}

// runPinger keeps the background location pinger alive until interrupted,
// mirroring the app's resident lifetime on a device.
func (a *application) runPinger(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping pinger...")
		cancel()
	}()

	a.pinger.Start(ctx)
	<-ctx.Done()
	a.pinger.Stop()
	log.Println("Pinger stopped gracefully")
	return nil
}

func describeVisitError(err error) error {
	switch {
	case errors.Is(err, fielderr.ErrAttendanceRequired):
		return fmt.Errorf("attendance not marked today; run: fieldtrack attendance Present")
	case errors.Is(err, fielderr.ErrNotPresent):
		return fmt.Errorf("today's attendance status does not permit visits")
	case errors.Is(err, fielderr.ErrVisitActive):
		return fmt.Errorf("another visit is active; run: fieldtrack checkout")
	case errors.Is(err, fielderr.ErrLocationUnavailable):
		return fmt.Errorf("location unavailable; shop check-in needs a fix, retry when it returns")
	default:
		return err
	}
}

func parseOrderLines(args []string) ([]models.OrderLine, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: order <productId:qty:price>...")
	}
	lines := make([]models.OrderLine, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad order line %q, want productId:qty:price", arg)
		}
		productID, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("bad product id in %q", arg)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("bad quantity in %q", arg)
		}
		price, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad price in %q", arg)
		}
		lines = append(lines, models.OrderLine{ProductID: productID, Quantity: qty, UnitPrice: price})
	}
	return lines, nil
}

func parseDOAItems(args []string) ([]models.DOAItem, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: doa <productId:qty:reason>...")
	}
	items := make([]models.DOAItem, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad DOA item %q, want productId:qty:reason", arg)
		}
		productID, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("bad product id in %q", arg)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("bad quantity in %q", arg)
		}
		items = append(items, models.DOAItem{ProductID: productID, Quantity: qty, Reason: parts[2]})
	}
	return items, nil
}

func readUploadFiles(args []string) ([]repository.UploadFile, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: photos <file>...")
	}
	files := make([]repository.UploadFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, repository.UploadFile{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}
