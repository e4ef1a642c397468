// Package bridge связывает очередь RabbitMQ с HTTP-сервисом.
//
// # Обзор
//
// Бридж потребляет сообщения из очереди process, находит action в реестре,
// вызывает сервис с ограниченным количеством попыток и публикует результат
// в одну из очередей: success, error или dead.
//
// # Ключевые компоненты
//
// ## Bridge
//
// Управляет жизненным циклом. Initialize выполняет шаги строго по порядку:
//
//  1. Подключение к RabbitMQ
//  2. Открытие канала
//  3. Объявление и подписка на очередь process (auto-ack)
//  4. Переход в состояние Ready
//  5. Запуск локального сервиса (если задан startCommand)
//
// Ошибка на любом шаге фатальна. Переподключения нет.
//
//	b, err := bridge.New(cfg, bridge.Options{Logger: logger, Metrics: metrics})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	if err := b.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = b.Run(ctx)
//
// ## Dispatcher
//
// Обрабатывает одно сообщение:
//
//	Received → Resolving → (Dropped | Invoking) → (Succeeded | Failed)
//
// # Маршрутизация
//
//   - action не найден — сообщение отбрасывается, только лог
//   - успех — success, если needsResponse
//   - попытки исчерпаны и настроена dead очередь — запись в dead, в error ничего
//   - любая другая ошибка — error, если needsError
//
// Без dead очереди исчерпание попыток считается обычной ошибкой и идёт в error.
//
// # Подтверждение
//
// Сообщение подтверждается в момент доставки. Сообщения в обработке
// при падении процесса теряются (at-most-once).
package bridge
