package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	gcs "cloud.google.com/go/storage"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/async"
	"github.com/averros/invopipe/internal/common"
	"github.com/averros/invopipe/internal/decrypt"
	"github.com/averros/invopipe/internal/export"
	"github.com/averros/invopipe/internal/mapper"
	"github.com/averros/invopipe/internal/ocr"
	"github.com/averros/invopipe/internal/pdf"
	"github.com/averros/invopipe/internal/repository"
	"github.com/averros/invopipe/internal/server"
	"github.com/averros/invopipe/internal/service"
	"github.com/averros/invopipe/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		logger.Error("object store client failed", "error", err)
		os.Exit(1)
	}
	defer gcsClient.Close()
	store := storage.NewGCSStore(gcsClient, cfg.Storage.Bucket, cfg.Storage.Prefix, logger)

	docs := repository.NewDocumentRepository(db, logger)
	customers := repository.NewCustomerRepository(db, logger)
	vendors := repository.NewVendorRepository(db, logger)
	items := repository.NewItemRepository(db, logger)

	validator := pdf.NewValidator(pdf.PDFCPUCounter{}, logger)
	decryptor := decrypt.NewQPDF(cfg.Decrypt.QPDFPath, logger, decrypt.WithWorkDir(cfg.Decrypt.WorkDir))

	var analyzer ocr.Analyzer
	if cfg.OCR.Sandbox {
		logger.Warn("sandbox analyzer enabled, no provider calls will be made")
		analyzer = ocr.NewSandboxAnalyzer()
	} else {
		analyzer = ocr.NewAzureClient(ocr.AzureConfig{
			Endpoint:     cfg.OCR.Endpoint,
			APIKey:       cfg.OCR.APIKey,
			ModelID:      cfg.OCR.ModelID,
			PollInterval: cfg.OCR.PollInterval,
			Timeout:      cfg.OCR.Timeout,
		}, logger)
	}

	newPipeline := func(docType constants.DocumentType, m *mapper.Mapper) (*service.DocumentService, *async.WorkerQueue) {
		proc := service.NewAnalysisProcessor(service.AnalysisProcessorParams{
			DocType:   docType,
			Analyzer:  analyzer,
			Mapper:    m,
			Store:     store,
			Documents: docs,
			Customers: customers,
			Vendors:   vendors,
			Items:     items,
			Logger:    logger,
		})
		queue := async.NewWorkerQueue(proc, logger)
		svc := service.NewDocumentService(service.DocumentServiceParams{
			DocType:   docType,
			Validator: validator,
			Decryptor: decryptor,
			Store:     store,
			Queue:     queue,
			Documents: docs,
			Customers: customers,
			Vendors:   vendors,
			Items:     items,
			Logger:    logger,
		})
		return svc, queue
	}

	invoiceSvc, invoiceQueue := newPipeline(constants.TypeInvoice, mapper.NewInvoiceMapper())
	poSvc, poQueue := newPipeline(constants.TypePurchaseOrder, mapper.NewPurchaseOrderMapper())

	exporter := export.NewService(docs, logger)

	var limiter server.RateLimiter
	if cfg.RateLimit.RedisAddr != "" {
		limiter, err = server.NewRedisLimiter(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB, nil)
		if err != nil {
			logger.Error("rate limiter setup failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("REDIS_ADDR not set, upload rate limiting disabled")
	}

	srv := server.New(cfg.Server, server.Deps{
		Invoices:       server.NewHandler(constants.TypeInvoice, invoiceSvc, exporter),
		PurchaseOrders: server.NewHandler(constants.TypePurchaseOrder, poSvc, exporter),
		Limiter:        limiter,
		RateLimit:      cfg.RateLimit,
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	invoiceQueue.Shutdown(shutdownCtx)
	poQueue.Shutdown(shutdownCtx)

	logger.Info("stopped")
}
