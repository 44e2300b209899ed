// Package bot: "склейка" вокруг transport, lobby и feed, превращающая модель
// комнаты в работающего бота. Бот:
//   - входит в комнату из конфига или создаёт новую (!mp make);
//   - отвечает на чат-команды (!help, !info, !stats) и команды владельцев
//     (*host, *resync, *abort, *say);
//   - после переподключения транспорта перечитывает !mp settings
//     с антидребезгом;
//   - публикует все события комнаты в websocket-ленту.
//
// Жизненный цикл:
//   - Создать бота через New(tr, cfg).
//   - (Опционально) SetFeed(hub), SetLogger(l).
//   - Запустить Start(ctx) и остановить Stop().
//
// Пример:
//
//	b := bot.New(tr, cfg)
//	b.SetFeed(hub)
//	if err := b.Start(ctx); err != nil { log.Fatal().Err(err).Send() }
//	defer b.Stop()
//	<-b.Done()
//
// Команды владельцев (префикс '*') доступны только игрокам с
// RoleAuthorized, то есть ники из cfg.Owners.
package bot
