package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jeovahfialho/pnl-recap/internal/aggregator"
	"github.com/jeovahfialho/pnl-recap/internal/config"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/internal/ingestion"
	"github.com/jeovahfialho/pnl-recap/internal/render"
	"github.com/jeovahfialho/pnl-recap/internal/scheduler"
	"github.com/jeovahfialho/pnl-recap/internal/service"
	"github.com/jeovahfialho/pnl-recap/internal/storage/cache"
	"github.com/jeovahfialho/pnl-recap/internal/storage/postgres"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "pnl-recap",
		Short: "P&L Recap CLI",
		Long: `CLI para importar diários de trading e gerar cards de resultado.
Permite importar CSVs, consultar cards e aquecer o cache.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			return logger.Init(level, "console", true)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	rootCmd.PersistentFlags().String("log-level", "warn", "Nível de log (debug, info, warn, error)")

	// Comando list
	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lista arquivos CSV disponíveis para importar",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("dir")
			return listFiles(dataDir)
		},
	}

	listCmd.Flags().StringP("dir", "d", "./data", "Diretório dos dados")

	// Comando import
	var importCmd = &cobra.Command{
		Use:   "import [files...]",
		Short: "Importa diários de trading em CSV",
		Long: `Importa arquivos CSV com as colunas date, gross_pnl, charges,
num_trades e capital_deployed. Aceita vírgula ou ponto e vírgula como
separador. Um dia já registrado é substituído.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			return importFiles(userID, args)
		},
	}

	importCmd.Flags().StringP("user", "u", "", "Usuário dono dos lançamentos")
	_ = importCmd.MarkFlagRequired("user")

	// Comando card
	var cardCmd = &cobra.Command{
		Use:       "card [daily|weekly|monthly]",
		Short:     "Mostra o card de um dia, semana ou mês",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(domain.CardDaily), string(domain.CardWeekly), string(domain.CardMonthly)},
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			date, _ := cmd.Flags().GetString("date")
			outputDir, _ := cmd.Flags().GetString("download")
			return showCard(domain.CardKind(args[0]), userID, date, outputDir)
		},
	}

	cardCmd.Flags().StringP("user", "u", "", "Usuário")
	cardCmd.Flags().StringP("date", "d", "", "Data de referência (YYYY-MM-DD), padrão: hoje")
	cardCmd.Flags().StringP("download", "o", "", "Baixa a imagem do card para este diretório")
	_ = cardCmd.MarkFlagRequired("user")

	// Comando profile
	var profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Cria ou atualiza o perfil de um usuário",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := domain.Profile{}
			p.UserID, _ = cmd.Flags().GetString("user")
			currency, _ := cmd.Flags().GetString("currency")
			p.Timezone, _ = cmd.Flags().GetString("timezone")
			p.Handle, _ = cmd.Flags().GetString("handle")
			p.Theme, _ = cmd.Flags().GetString("theme")
			capital, _ := cmd.Flags().GetString("capital")
			return saveProfile(p, currency, capital)
		},
	}

	profileCmd.Flags().StringP("user", "u", "", "Usuário")
	profileCmd.Flags().String("currency", "INR", "Moeda (INR ou USD)")
	profileCmd.Flags().String("timezone", "Asia/Kolkata", "Fuso horário IANA")
	profileCmd.Flags().String("capital", "", "Capital de trading, usado no ROI")
	profileCmd.Flags().String("handle", "", "Apelido exibido no card")
	profileCmd.Flags().String("theme", "dark", "Tema do card")
	_ = profileCmd.MarkFlagRequired("user")

	// Comando entry
	var entryCmd = &cobra.Command{
		Use:   "entry",
		Short: "Consulta ou remove o lançamento de um dia",
	}

	var entryShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Mostra o lançamento de um dia",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			date, _ := cmd.Flags().GetString("date")
			return showEntry(userID, date)
		},
	}

	var entryDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Remove o lançamento de um dia",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			date, _ := cmd.Flags().GetString("date")
			return deleteEntry(userID, date)
		},
	}

	for _, c := range []*cobra.Command{entryShowCmd, entryDeleteCmd} {
		c.Flags().StringP("user", "u", "", "Usuário")
		c.Flags().StringP("date", "d", "", "Data do lançamento (YYYY-MM-DD)")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("date")
	}
	entryCmd.AddCommand(entryShowCmd, entryDeleteCmd)

	// Comando migrate
	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrations pendentes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations()
		},
	}

	// Comando warmup
	var warmupCmd = &cobra.Command{
		Use:   "warmup",
		Short: "Pré-calcula os cards da semana e do mês anteriores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return warmup()
		},
	}

	// Comando health
	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Verifica saúde do sistema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	rootCmd.AddCommand(listCmd, importCmd, cardCmd, entryCmd, profileCmd, migrateCmd, warmupCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func listFiles(dataDir string) error {
	fmt.Printf("📂 Listando arquivos em %s\n\n", dataDir)

	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return err
	}

	if len(files) == 0 {
		fmt.Println("❌ Nenhum arquivo encontrado")
		fmt.Println("💡 Exporte o diário de trading como CSV neste diretório")
		return nil
	}

	sort.Strings(files)

	var totalSize int64
	fmt.Printf("📊 %d arquivos CSV:\n", len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		totalSize += info.Size()
		fmt.Printf("  - %-30s %10s\n", filepath.Base(file), formatBytes(info.Size()))
	}
	fmt.Printf("\n💾 Tamanho total: %s\n", formatBytes(totalSize))

	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func connectDB(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar ao banco: %w", err)
	}
	return db, nil
}

// connectRedis returns a nil interface when Redis is unavailable, never a
// nil *RedisCache wrapped in one.
func connectRedis(cfg *config.Config) (service.ViewCache, func()) {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		fmt.Printf("⚠️  Redis não disponível, continuando sem cache: %v\n", err)
		return nil, func() {}
	}
	return redisCache, func() { redisCache.Close() }
}

// cardService wires the read side shared by several commands.
func cardService(cfg *config.Config, db *postgres.DB, viewCache service.ViewCache) *service.CardService {
	return service.NewCardService(
		postgres.NewEntryStore(db.Pool()),
		postgres.NewProfileStore(db.Pool()),
		viewCache,
		cfg.DefaultProfile(),
	)
}

func importFiles(userID string, patterns []string) error {
	ctx := context.Background()
	cfg := config.Load()

	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("padrão inválido %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	viewCache, closeCache := connectRedis(cfg)
	defer closeCache()

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	loader := ingestion.NewBulkLoader(db.Pool(), cfg.BatchSize, cfg.Workers)

	workerPool := ingestion.NewWorkerPool(cfg.Workers, parser, loader)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	results := make(chan ingestion.JobResult, len(files))

	fmt.Printf("📥 Importando %d arquivo(s) para %s...\n\n", len(files), userID)

	go func() {
		for _, file := range files {
			workerPool.Submit(ingestion.Job{
				UserID:   userID,
				FilePath: file,
				Result:   results,
			})
		}
	}()

	var totalRecords int64
	failed := 0
	for i := 0; i < len(files); i++ {
		result := <-results
		totalRecords += result.RecordsCount

		if result.Error != nil {
			failed++
			fmt.Printf("❌ Erro em %s: %v\n", result.FilePath, result.Error)
			continue
		}

		fmt.Printf("✅ %d lançamentos de %s", result.RecordsCount, result.FilePath)
		if result.Duplicates > 0 {
			fmt.Printf(" (%d duplicados)", result.Duplicates)
		}
		fmt.Println()

		for _, rejected := range result.Rejected {
			fmt.Printf("   ⚠️  %v\n", rejected)
		}
	}

	fmt.Printf("\n📊 Total: %d lançamentos gravados\n", totalRecords)

	if totalRecords > 0 {
		removed, err := cardService(cfg, db, viewCache).InvalidateUser(ctx, userID)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
		} else if removed > 0 {
			fmt.Printf("🔄 %d cards removidos do cache\n", removed)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d arquivo(s) falharam", failed)
	}
	return nil
}

func showCard(kind domain.CardKind, userID, dateStr, outputDir string) error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	viewCache, closeCache := connectRedis(cfg)
	defer closeCache()

	cards := cardService(cfg, db, viewCache)

	profile, err := cards.Profile(ctx, userID)
	if err != nil {
		return err
	}

	date := domain.CalendarDay(time.Now().In(profile.Location()))
	if dateStr != "" {
		if date, err = domain.ParseDate(dateStr); err != nil {
			return err
		}
	}

	var (
		view   interface{}
		params render.Params
	)

	switch kind {
	case domain.CardDaily:
		v, err := cards.Daily(ctx, userID, date)
		if err != nil {
			return err
		}
		view, params = v, render.DailyParams(v, profile)
	case domain.CardWeekly:
		v, err := cards.Weekly(ctx, userID, date)
		if err != nil {
			return err
		}
		if v == nil {
			fmt.Println("📭 Nenhum lançamento nesta semana")
			return nil
		}
		view, params = v, render.WeeklyParams(v, profile)
	case domain.CardMonthly:
		v, err := cards.Monthly(ctx, userID, date)
		if err != nil {
			return err
		}
		if v == nil {
			fmt.Println("📭 Nenhum lançamento neste mês")
			return nil
		}
		view, params = v, render.MonthlyParams(v, profile)
	}

	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("📊 Card %s de %s (%s):\n%s\n", kind, userID, domain.DateKey(date), out)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n🎨 Parâmetros:")
	for _, k := range keys {
		fmt.Printf("  %-14s %s\n", k, params[k])
	}

	images := render.NewClient(cfg.RendererURL, cfg.RendererTimeout)
	fmt.Printf("\n🔗 %s\n", images.ImageURL(kind, params))

	if outputDir != "" {
		name := fmt.Sprintf("%s-%s-%s", userID, kind, domain.DateKey(date))
		path, err := images.Download(ctx, kind, params, outputDir, name)
		if err != nil {
			return err
		}
		fmt.Printf("💾 Imagem salva em %s\n", path)
	}

	return nil
}

func saveProfile(p domain.Profile, currency, capital string) error {
	ctx := context.Background()
	cfg := config.Load()

	c, err := domain.ParseCurrency(currency)
	if err != nil {
		return err
	}
	p.Currency = c

	if capital = strings.TrimSpace(capital); capital != "" {
		d, err := decimal.NewFromString(capital)
		if err != nil {
			return fmt.Errorf("capital inválido: %w", err)
		}
		p.TradingCapital = &d
	}

	if err := p.Validate(); err != nil {
		return err
	}

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.NewProfileStore(db.Pool()).UpsertProfile(ctx, p); err != nil {
		return err
	}

	// Currency and timezone change how cached cards look.
	viewCache, closeCache := connectRedis(cfg)
	defer closeCache()
	if _, err := cardService(cfg, db, viewCache).InvalidateUser(ctx, p.UserID); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	}

	fmt.Printf("✅ Perfil de %s salvo (%s, %s)\n", p.UserID, p.Currency, p.Timezone)
	return nil
}

func showEntry(userID, dateStr string) error {
	ctx := context.Background()
	cfg := config.Load()

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return err
	}

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cards := cardService(cfg, db, nil)
	profile, err := cards.Profile(ctx, userID)
	if err != nil {
		return err
	}

	e, err := postgres.NewEntryStore(db.Pool()).GetEntry(ctx, userID, date)
	if errors.Is(err, domain.ErrEntryNotFound) {
		fmt.Printf("📭 Nenhum lançamento em %s\n", domain.DateKey(date))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("📅 %s (%s)\n", e.DateKey(), userID)
	fmt.Printf("├─ Bruto:     %s\n", aggregator.FormatMoney(e.GrossPnl, profile.Currency))
	if e.Charges != nil {
		fmt.Printf("├─ Custos:    %s\n", aggregator.FormatMoney(*e.Charges, profile.Currency))
	}
	fmt.Printf("├─ Líquido:   %s\n", aggregator.FormatMoney(aggregator.FinalResult(e), profile.Currency))
	if e.CapitalDeployed != nil {
		fmt.Printf("├─ Capital:   %s\n", e.CapitalDeployed.String())
	}
	fmt.Printf("└─ Operações: %d\n", e.NumTrades)

	return nil
}

func deleteEntry(userID, dateStr string) error {
	ctx := context.Background()
	cfg := config.Load()

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return err
	}

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.NewEntryStore(db.Pool()).DeleteEntry(ctx, userID, date); err != nil {
		return err
	}

	viewCache, closeCache := connectRedis(cfg)
	defer closeCache()
	if _, err := cardService(cfg, db, viewCache).InvalidateUser(ctx, userID); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	}

	fmt.Printf("🗑️  Lançamento de %s removido\n", domain.DateKey(date))
	return nil
}

func runMigrations() error {
	cfg := config.Load()

	fmt.Println("🔄 Aplicando migrations...")
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	fmt.Println("✅ Banco atualizado!")
	return nil
}

func warmup() error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	viewCache, closeCache := connectRedis(cfg)
	defer closeCache()
	if viewCache == nil {
		return fmt.Errorf("warm-up requer Redis")
	}

	cards := cardService(cfg, db, viewCache)
	sched := scheduler.New(ctx, postgres.NewEntryStore(db.Pool()), cards, cfg.Workers)

	fmt.Println("🔥 Aquecendo cache...")
	stored, err := sched.RunNow(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %d cards em cache\n", stored)
	return nil
}

func checkHealth() error {
	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("🏥 Verificando saúde do sistema...")
	fmt.Println()

	fmt.Print("PostgreSQL: ")
	db, err := connectDB(cfg)
	if err != nil {
		fmt.Printf("❌ Erro: %v\n", err)
	} else {
		defer db.Close()

		if err := db.HealthCheck(ctx); err != nil {
			fmt.Printf("❌ Erro: %v\n", err)
		} else {
			fmt.Println("✅ OK")
		}
	}

	fmt.Print("Redis: ")
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		fmt.Printf("❌ Não disponível: %v\n", err)
	} else {
		defer redisCache.Close()

		if err := redisCache.HealthCheck(ctx); err != nil {
			fmt.Printf("❌ Erro: %v\n", err)
		} else {
			fmt.Println("✅ OK")
		}
	}

	fmt.Print("Renderer: ")
	fmt.Println(cfg.RendererURL)

	fmt.Println("\n✅ Verificação concluída!")
	return nil
}
